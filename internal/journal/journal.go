// Package journal persists executed trades. Two backends are provided:
// an append-only CSV file and a SQLite database.
package journal

import (
	"time"

	"squeezebot/internal/model"
)

// TradeRecord is one executed order. Records are written once and never
// mutated; PnL is nil until realized.
type TradeRecord struct {
	ID        string
	Timestamp time.Time
	Symbol    string
	Side      model.Side
	Quantity  float64
	Price     float64
	Strategy  string
	PnL       *float64
}

// Journal is the persistence contract shared by the backends.
type Journal interface {
	// Record appends one trade. The record's ID must be set by the caller.
	Record(rec TradeRecord) error

	// History returns all records with Timestamp >= since, oldest first.
	History(since time.Time) ([]TradeRecord, error)

	Close() error
}
