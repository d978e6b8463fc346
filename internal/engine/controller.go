// Package engine runs the analysis loop: fetch candles, compute indicators,
// evaluate the signal, pass the risk gate, submit the order and journal it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"squeezebot/internal/exchange"
	"squeezebot/internal/id"
	"squeezebot/internal/indicator"
	"squeezebot/internal/journal"
	"squeezebot/internal/metrics"
	"squeezebot/internal/model"
	"squeezebot/internal/risk"
	"squeezebot/internal/signal"
)

// livePriceMaxAge bounds how stale a streamed ticker price may be before
// the controller falls back to the REST ticker.
const livePriceMaxAge = 30 * time.Second

// MarketClient is the exchange capability the controller consumes.
type MarketClient interface {
	FetchCandles(ctx context.Context, symbol, interval string, start, end time.Time) (model.Series, error)
	FetchPrice(ctx context.Context, symbol string) (float64, error)
	SubmitMarketOrder(ctx context.Context, symbol string, side model.Side, quantity float64) (exchange.OrderFill, error)
}

// LivePrice is an optional cache of the latest streamed price.
type LivePrice interface {
	Price(maxAge time.Duration) (float64, bool)
}

// Decision is the published outcome of one evaluation.
type Decision struct {
	Time     time.Time `json:"time"`
	Symbol   string    `json:"symbol"`
	Action   string    `json:"action"`
	Strategy string    `json:"strategy,omitempty"`
	Reason   string    `json:"reason"`
	Close    float64   `json:"close"`
}

// DecisionPublisher pushes decisions to downstream consumers. Publishing is
// best effort; failures are logged, never fatal.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, d Decision) error
}

// Config holds the loop parameters.
type Config struct {
	Symbol   string
	Interval string
	Quantity float64

	LookbackDays           int
	AnalysisInterval       time.Duration
	RetryDelay             time.Duration
	MaxConsecutiveFailures int

	Params     indicator.Params
	Thresholds signal.Thresholds
}

// Controller owns one symbol's analysis loop.
type Controller struct {
	cfg     Config
	market  MarketClient
	live    LivePrice         // may be nil
	pub     DecisionPublisher // may be nil
	gate    *risk.Gate
	journal journal.Journal
	met     *metrics.Metrics
	health  *metrics.HealthStatus
	log     *slog.Logger

	evalFn func(prev, curr indicator.Snapshot, meanVol indicator.Value, th signal.Thresholds) signal.Signal
}

// New wires a controller. live and pub may be nil.
func New(cfg Config, market MarketClient, live LivePrice, pub DecisionPublisher,
	gate *risk.Gate, jnl journal.Journal, met *metrics.Metrics,
	health *metrics.HealthStatus, log *slog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		market:  market,
		live:    live,
		pub:     pub,
		gate:    gate,
		journal: jnl,
		met:     met,
		health:  health,
		log:     log,
		evalFn:  signal.Evaluate,
	}
}

// Run executes analysis cycles until ctx is cancelled or the consecutive
// unexpected-failure budget is exhausted, in which case it returns the
// final error.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("starting analysis loop",
		"symbol", c.cfg.Symbol,
		"interval", c.cfg.Interval,
		"analysis_interval", c.cfg.AnalysisInterval.String())

	consecutive := 0
	for {
		cycleErr := c.runCycle(ctx)
		if ctx.Err() != nil {
			c.log.Info("analysis loop stopped")
			return nil
		}

		c.health.RecordCycle(cycleErr == nil)
		delay := c.cfg.AnalysisInterval

		switch {
		case cycleErr == nil:
			consecutive = 0
			c.met.CyclesTotal.WithLabelValues("ok").Inc()

		case cycleErr.Kind == KindDataUnavailable:
			c.met.CyclesTotal.WithLabelValues(cycleErr.Kind.String()).Inc()
			c.log.Error("cycle failed, market data unavailable", "err", cycleErr.Err)
			delay = c.cfg.RetryDelay

		case cycleErr.Kind == KindOrderSubmissionFailed:
			// Data acquisition succeeded; this failure does not count
			// toward the budget and the loop keeps its normal cadence.
			consecutive = 0
			c.met.CyclesTotal.WithLabelValues(cycleErr.Kind.String()).Inc()
			c.log.Error("cycle failed, order not submitted", "err", cycleErr.Err)

		default:
			consecutive++
			c.met.CyclesTotal.WithLabelValues(cycleErr.Kind.String()).Inc()
			c.met.ConsecFails.Set(float64(consecutive))
			c.log.Error("cycle failed",
				"err", cycleErr.Err,
				"consecutive", consecutive,
				"max", c.cfg.MaxConsecutiveFailures)
			if consecutive >= c.cfg.MaxConsecutiveFailures {
				return fmt.Errorf("aborting after %d consecutive failures: %w", consecutive, cycleErr.Err)
			}
			delay = c.cfg.RetryDelay
		}

		if cycleErr == nil || cycleErr.Kind == KindOrderSubmissionFailed {
			c.met.ConsecFails.Set(0)
		}

		if !sleepCtx(ctx, delay) {
			c.log.Info("analysis loop stopped")
			return nil
		}
	}
}

// runCycle performs one FETCH, COMPUTE, EVALUATE, GATE, SUBMIT, JOURNAL pass.
func (c *Controller) runCycle(ctx context.Context) *CycleError {
	// FETCH
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -c.cfg.LookbackDays)
	series, err := c.market.FetchCandles(ctx, c.cfg.Symbol, c.cfg.Interval, start, end)
	if err != nil {
		return dataUnavailable(err)
	}
	if len(series) == 0 {
		return dataUnavailable(fmt.Errorf("empty candle series for %s/%s", c.cfg.Symbol, c.cfg.Interval))
	}

	// COMPUTE
	computeStart := time.Now()
	snaps := indicator.Compute(series, c.cfg.Params)
	meanVol := indicator.MeanVolatility(snaps)
	c.met.ComputeDur.Observe(time.Since(computeStart).Seconds())
	c.met.LastCandleAge.Set(time.Since(series.Last().OpenTime).Seconds())

	// EVALUATE
	var sig signal.Signal
	if len(snaps) < 2 {
		sig = signal.Signal{Action: signal.ActionHold, Reason: "insufficient data"}
	} else {
		sig = c.evalFn(snaps[len(snaps)-2], snaps[len(snaps)-1], meanVol, c.cfg.Thresholds)
	}
	c.met.SignalsTotal.WithLabelValues(string(sig.Action), sig.Strategy).Inc()
	c.log.Info("signal",
		"symbol", c.cfg.Symbol,
		"action", sig.Action,
		"strategy", sig.Strategy,
		"reason", sig.Reason,
		"close", series.Last().Close)

	c.publish(ctx, sig, series.Last())

	if sig.Action == signal.ActionHold {
		return nil
	}

	// GATE
	if ok, reason := c.gate.CanTrade(); !ok {
		c.met.GateBlocks.Inc()
		c.log.Info("signal blocked", "symbol", c.cfg.Symbol, "action", sig.Action, "reason", reason)
		return nil
	}

	// SUBMIT
	price, ok := c.livePriceOrZero()
	if !ok {
		price, err = c.market.FetchPrice(ctx, c.cfg.Symbol)
		if err != nil {
			return orderFailed(fmt.Errorf("fetch price: %w", err))
		}
	}
	c.log.Info("submitting order",
		"symbol", c.cfg.Symbol,
		"side", sig.Action,
		"quantity", c.cfg.Quantity,
		"price", price,
		"status", "PENDING")

	fill, err := c.market.SubmitMarketOrder(ctx, c.cfg.Symbol, model.Side(sig.Action), c.cfg.Quantity)
	if err != nil {
		c.met.OrdersTotal.WithLabelValues("failed").Inc()
		c.log.Error("order failed",
			"symbol", c.cfg.Symbol,
			"side", sig.Action,
			"quantity", c.cfg.Quantity,
			"err", err)
		return orderFailed(err)
	}

	c.gate.RecordTrade()
	c.met.OrdersTotal.WithLabelValues("success").Inc()
	c.met.TradesToday.Set(float64(c.gate.TradesToday()))

	if fill.Price > 0 {
		price = fill.Price
	}
	c.log.Info("order filled",
		"symbol", c.cfg.Symbol,
		"side", sig.Action,
		"quantity", c.cfg.Quantity,
		"price", price,
		"order_id", fill.OrderID,
		"status", "SUCCESS")

	// JOURNAL
	rec := journal.TradeRecord{
		ID:        id.New(),
		Timestamp: time.Now().UTC(),
		Symbol:    c.cfg.Symbol,
		Side:      model.Side(sig.Action),
		Quantity:  c.cfg.Quantity,
		Price:     price,
		Strategy:  sig.Strategy,
	}
	if err := c.journal.Record(rec); err != nil {
		return unexpected(fmt.Errorf("journal trade %s: %w", rec.ID, err))
	}
	return nil
}

func (c *Controller) publish(ctx context.Context, sig signal.Signal, last model.Candle) {
	if c.pub == nil {
		return
	}
	d := Decision{
		Time:     time.Now().UTC(),
		Symbol:   c.cfg.Symbol,
		Action:   string(sig.Action),
		Strategy: sig.Strategy,
		Reason:   sig.Reason,
		Close:    last.Close,
	}
	if err := c.pub.PublishDecision(ctx, d); err != nil {
		c.log.Warn("decision publish failed", "err", err)
	}
}

func (c *Controller) livePriceOrZero() (float64, bool) {
	if c.live == nil {
		return 0, false
	}
	return c.live.Price(livePriceMaxAge)
}

// sleepCtx sleeps for d unless ctx is cancelled first. It reports whether
// the full sleep elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
