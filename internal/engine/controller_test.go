package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"squeezebot/internal/exchange"
	"squeezebot/internal/indicator"
	"squeezebot/internal/journal"
	"squeezebot/internal/metrics"
	"squeezebot/internal/model"
	"squeezebot/internal/risk"
	"squeezebot/internal/signal"
)

type fakeMarket struct {
	fetchErr    error
	priceErr    error
	submitErr   error
	submitCalls int
	priceCalls  int
}

func (m *fakeMarket) FetchCandles(_ context.Context, _, _ string, _, _ time.Time) (model.Series, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	base := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	s := make(model.Series, 3)
	for i := range s {
		c := 100.0 + float64(i)
		s[i] = model.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}
	return s, nil
}

func (m *fakeMarket) FetchPrice(_ context.Context, _ string) (float64, error) {
	m.priceCalls++
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return 101.5, nil
}

func (m *fakeMarket) SubmitMarketOrder(_ context.Context, symbol string, _ model.Side, qty float64) (exchange.OrderFill, error) {
	m.submitCalls++
	if m.submitErr != nil {
		return exchange.OrderFill{}, m.submitErr
	}
	return exchange.OrderFill{OrderID: 42, Symbol: symbol, Price: 101.6, Quantity: qty, Status: "FILLED"}, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	records []journal.TradeRecord
	errFn   func(call int) error
	calls   int
}

func (j *fakeJournal) Record(rec journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.errFn != nil {
		if err := j.errFn(j.calls); err != nil {
			return err
		}
	}
	j.records = append(j.records, rec)
	return nil
}

func (j *fakeJournal) recorded() []journal.TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]journal.TradeRecord(nil), j.records...)
}

func (j *fakeJournal) History(time.Time) ([]journal.TradeRecord, error) { return j.recorded(), nil }
func (j *fakeJournal) Close() error                                     { return nil }

func buySignal(indicator.Snapshot, indicator.Snapshot, indicator.Value, signal.Thresholds) signal.Signal {
	return signal.Signal{Action: signal.ActionBuy, Strategy: signal.StrategySqueeze, Reason: "Upward breakout from BB squeeze"}
}

func holdSignal(indicator.Snapshot, indicator.Snapshot, indicator.Value, signal.Thresholds) signal.Signal {
	return signal.Signal{Action: signal.ActionHold, Reason: "no clear signal"}
}

func newTestController(market *fakeMarket, jnl *fakeJournal, gate *risk.Gate, maxFailures int) *Controller {
	cfg := Config{
		Symbol:                 "BTCUSDT",
		Interval:               "15m",
		Quantity:               0.001,
		LookbackDays:           1,
		AnalysisInterval:       time.Millisecond,
		RetryDelay:             time.Millisecond,
		MaxConsecutiveFailures: maxFailures,
		Params:                 indicator.DefaultParams(),
		Thresholds:             signal.Thresholds{ADX: 25},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	met := metrics.New(prometheus.NewRegistry())
	return New(cfg, market, nil, nil, gate, jnl, met, metrics.NewHealthStatus(), log)
}

func TestCycleSubmitsAndJournalsOnBuy(t *testing.T) {
	market := &fakeMarket{}
	jnl := &fakeJournal{}
	gate := risk.NewGate(5)
	c := newTestController(market, jnl, gate, 3)
	c.evalFn = buySignal

	if err := c.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if market.submitCalls != 1 {
		t.Errorf("submit calls = %d, want 1", market.submitCalls)
	}
	if gate.TradesToday() != 1 {
		t.Errorf("TradesToday = %d, want 1", gate.TradesToday())
	}
	if len(jnl.records) != 1 {
		t.Fatalf("journal records = %d, want 1", len(jnl.records))
	}
	rec := jnl.records[0]
	if rec.Side != model.SideBuy || rec.Strategy != signal.StrategySqueeze {
		t.Errorf("record = %+v", rec)
	}
	if rec.Price != 101.6 {
		t.Errorf("record price = %v, want fill price 101.6", rec.Price)
	}
	if rec.ID == "" {
		t.Error("record missing ID")
	}
}

func TestHoldNeverTouchesMarket(t *testing.T) {
	market := &fakeMarket{}
	c := newTestController(market, &fakeJournal{}, risk.NewGate(5), 3)
	c.evalFn = holdSignal

	if err := c.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if market.submitCalls != 0 || market.priceCalls != 0 {
		t.Errorf("HOLD triggered market calls: submit=%d price=%d", market.submitCalls, market.priceCalls)
	}
}

func TestGateBlockDowngradesToHold(t *testing.T) {
	market := &fakeMarket{}
	jnl := &fakeJournal{}
	gate := risk.NewGate(1)
	gate.RecordTrade()
	c := newTestController(market, jnl, gate, 3)
	c.evalFn = buySignal

	if err := c.runCycle(context.Background()); err != nil {
		t.Fatalf("blocked cycle should not fail: %v", err)
	}
	if market.submitCalls != 0 {
		t.Error("order submitted despite exhausted daily cap")
	}
	if len(jnl.records) != 0 {
		t.Error("blocked signal was journaled")
	}
}

func TestOrderFailureDoesNotRecordTrade(t *testing.T) {
	market := &fakeMarket{submitErr: errors.New("insufficient balance")}
	jnl := &fakeJournal{}
	gate := risk.NewGate(5)
	c := newTestController(market, jnl, gate, 3)
	c.evalFn = buySignal

	err := c.runCycle(context.Background())
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if err.Kind != KindOrderSubmissionFailed {
		t.Errorf("kind = %v, want order submission failure", err.Kind)
	}
	if gate.TradesToday() != 0 {
		t.Error("failed order incremented the daily counter")
	}
	if len(jnl.records) != 0 {
		t.Error("failed order was journaled")
	}
}

func TestFetchFailureIsDataUnavailable(t *testing.T) {
	market := &fakeMarket{fetchErr: errors.New("503 from exchange")}
	c := newTestController(market, &fakeJournal{}, risk.NewGate(5), 3)

	err := c.runCycle(context.Background())
	if err == nil || err.Kind != KindDataUnavailable {
		t.Fatalf("err = %v, want data unavailable", err)
	}
}

func TestRunTerminatesAfterMaxConsecutiveFailures(t *testing.T) {
	market := &fakeMarket{}
	jnl := &fakeJournal{errFn: func(int) error { return errors.New("disk full") }}
	c := newTestController(market, jnl, risk.NewGate(100), 3)
	c.evalFn = buySignal

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Run(ctx)
	if err == nil {
		t.Fatal("expected fatal error after exhausting the failure budget")
	}
	if !strings.Contains(err.Error(), "3 consecutive failures") {
		t.Errorf("err = %v", err)
	}
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	market := &fakeMarket{}
	// Fail twice, succeed once, fail twice more, then succeed forever.
	// With a budget of 3 the run must survive all of it.
	jnl := &fakeJournal{errFn: func(call int) error {
		switch call {
		case 1, 2, 4, 5:
			return errors.New("transient")
		}
		return nil
	}}
	c := newTestController(market, jnl, risk.NewGate(100), 3)
	c.evalFn = buySignal

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(jnl.recorded()) < 2 {
		select {
		case err := <-done:
			t.Fatalf("run terminated early: %v", err)
		case <-deadline:
			t.Fatal("timed out waiting for successful cycles")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("cancelled run returned %v", err)
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	market := &fakeMarket{}
	c := newTestController(market, &fakeJournal{}, risk.NewGate(5), 3)
	c.evalFn = holdSignal

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
