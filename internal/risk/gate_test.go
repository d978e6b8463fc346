package risk

import (
	"strings"
	"testing"
	"time"
)

func TestCanTradeCapsAtMax(t *testing.T) {
	g := NewGate(3)
	for i := 0; i < 3; i++ {
		ok, reason := g.CanTrade()
		if !ok {
			t.Fatalf("trade %d: blocked unexpectedly: %s", i+1, reason)
		}
		g.RecordTrade()
	}

	ok, reason := g.CanTrade()
	if ok {
		t.Fatal("4th trade of the day should be blocked")
	}
	if !strings.Contains(reason, "daily trade limit") {
		t.Errorf("reason = %q", reason)
	}
	if got := g.TradesToday(); got != 3 {
		t.Errorf("TradesToday = %d, want 3", got)
	}
}

func TestLazyDailyReset(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	g := NewGate(1)
	g.now = func() time.Time { return now }
	g.lastReset = now

	g.RecordTrade()
	if ok, _ := g.CanTrade(); ok {
		t.Fatal("cap of 1 should block a second trade the same day")
	}

	// Same calendar day, later hour: still blocked.
	now = now.Add(5 * time.Minute)
	if ok, _ := g.CanTrade(); ok {
		t.Fatal("still the same day, should remain blocked")
	}

	// Crossing midnight resets the counter on the next check.
	now = now.Add(20 * time.Minute)
	ok, reason := g.CanTrade()
	if !ok {
		t.Fatalf("new day should reset the counter: %s", reason)
	}
	if got := g.TradesToday(); got != 0 {
		t.Errorf("TradesToday after reset = %d, want 0", got)
	}
}

func TestRecordTradeAfterDayRollover(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g := NewGate(2)
	g.now = func() time.Time { return now }
	g.lastReset = now

	g.RecordTrade()
	g.RecordTrade()

	now = now.AddDate(0, 0, 1)
	g.RecordTrade()
	if got := g.TradesToday(); got != 1 {
		t.Errorf("TradesToday = %d, want 1 after rollover", got)
	}
}
