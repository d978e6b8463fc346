// Package model holds the value types shared across the bot: candles,
// candle series and order sides.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Candle represents one OHLCV bar for a fixed interval.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Series is a chronologically ordered run of candles. A fresh series is
// fetched each analysis cycle and treated as immutable afterwards.
type Series []Candle

// Validate checks that timestamps are strictly increasing and every numeric
// field is finite. A series that fails validation is treated as malformed
// collaborator data, not as a computable input.
func (s Series) Validate() error {
	for i := range s {
		c := &s[i]
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("candle %d at %s: non-finite field", i, c.OpenTime.Format(time.RFC3339))
			}
		}
		if i > 0 && !s[i].OpenTime.After(s[i-1].OpenTime) {
			return fmt.Errorf("candle %d at %s: open time not after previous candle", i, c.OpenTime.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes returns the close price of every candle, aligned by index.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Last returns the most recent candle. Panics on an empty series; callers
// check length first.
func (s Series) Last() Candle {
	return s[len(s)-1]
}
