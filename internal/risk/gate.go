// Package risk enforces the per-day trade cap.
package risk

import (
	"fmt"
	"sync"
	"time"
)

// Gate counts trades per calendar day and refuses new ones past the cap.
// The counter resets lazily on the first check of a new day; nothing is
// persisted, so a restart starts the day at zero.
type Gate struct {
	mu          sync.Mutex
	maxPerDay   int
	tradesToday int
	lastReset   time.Time

	now func() time.Time
}

// NewGate returns a gate allowing at most maxPerDay trades per calendar day.
func NewGate(maxPerDay int) *Gate {
	return &Gate{
		maxPerDay: maxPerDay,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// CanTrade reports whether another trade is allowed today. The returned
// string explains a refusal.
func (g *Gate) CanTrade() (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetIfNewDay()
	if g.tradesToday >= g.maxPerDay {
		return false, fmt.Sprintf("daily trade limit reached (%d/%d)", g.tradesToday, g.maxPerDay)
	}
	return true, ""
}

// RecordTrade counts one submitted order. Call it exactly once per order
// that the exchange accepted, never for refused or failed submissions.
func (g *Gate) RecordTrade() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetIfNewDay()
	g.tradesToday++
}

// TradesToday returns the current day's count.
func (g *Gate) TradesToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetIfNewDay()
	return g.tradesToday
}

func (g *Gate) resetIfNewDay() {
	now := g.now()
	y1, m1, d1 := g.lastReset.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		g.tradesToday = 0
		g.lastReset = now
	}
}
