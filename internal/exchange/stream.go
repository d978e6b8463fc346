package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// miniTickerEvent is the payload of the <symbol>@miniTicker stream.
type miniTickerEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// TickerStream keeps a live last price for one symbol via the miniTicker
// websocket stream. Consumers read the cached price with Price; a stale or
// absent cache means the caller should fall back to the REST ticker.
type TickerStream struct {
	streamURL string
	symbol    string
	log       *slog.Logger

	mu         sync.RWMutex
	lastPrice  float64
	lastUpdate time.Time
}

// NewTickerStream builds a stream against streamURL
// (e.g. wss://stream.binance.com:9443/ws) for one symbol.
func NewTickerStream(streamURL, symbol string, log *slog.Logger) *TickerStream {
	return &TickerStream{
		streamURL: streamURL,
		symbol:    symbol,
		log:       log,
	}
}

// Run connects and consumes ticker events until ctx is cancelled,
// reconnecting with a fixed delay on any read or dial failure.
func (s *TickerStream) Run(ctx context.Context) {
	endpoint := fmt.Sprintf("%s/%s@miniTicker", strings.TrimRight(s.streamURL, "/"), strings.ToLower(s.symbol))
	for {
		if err := s.consume(ctx, endpoint); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("ticker stream disconnected", "symbol", s.symbol, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *TickerStream) consume(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	s.log.Info("ticker stream connected", "symbol", s.symbol)

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev miniTickerEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			s.log.Warn("ticker stream bad payload", "err", err)
			continue
		}
		price, err := strconv.ParseFloat(ev.Close, 64)
		if err != nil {
			continue
		}
		s.mu.Lock()
		s.lastPrice = price
		s.lastUpdate = time.Now()
		s.mu.Unlock()
	}
}

// Price returns the cached last price if it is fresher than maxAge.
func (s *TickerStream) Price(maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastUpdate.IsZero() || time.Since(s.lastUpdate) > maxAge {
		return 0, false
	}
	return s.lastPrice, true
}
