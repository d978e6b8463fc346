// Package redis publishes trading decisions to Redis so dashboards and
// downstream consumers can follow the bot without touching the journal.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"squeezebot/internal/engine"
)

const (
	// Stream trimming: roughly a week of 15m decisions plus buffer.
	decisionStreamMaxLen = 1000
	latestTTL            = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes each decision three ways in one pipeline: SET of the
// latest value, XADD onto a capped stream, and PUBLISH for live listeners.
type Publisher struct {
	client *goredis.Client
	log    *slog.Logger
}

// New creates a Publisher and pings the server.
func New(cfg Config, log *slog.Logger) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis connected", "addr", cfg.Addr)
	return &Publisher{client: client, log: log}, nil
}

// PublishDecision writes one decision. Implements engine.DecisionPublisher.
func (p *Publisher) PublishDecision(ctx context.Context, d engine.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	symbol := strings.ToLower(d.Symbol)

	pipe := p.client.Pipeline()
	pipe.Set(ctx, "decision:latest:"+symbol, data, latestTTL)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "decision:stream:" + symbol,
		MaxLen: decisionStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Publish(ctx, "pub:decision:"+symbol, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish decision: %w", err)
	}
	return nil
}

// Close releases the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
