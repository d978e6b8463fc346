// Package indicator derives aligned technical-indicator series from a candle
// series: close volatility, Bollinger Bands, Keltner Channels, ADX, RSI,
// MACD and the band squeeze flag.
//
// Every computation is deterministic and side-effect free. Entries for which
// insufficient history exists are undefined (see Value); an input shorter
// than the largest configured window yields a fully undefined result rather
// than an error.
package indicator

import (
	"time"

	"squeezebot/internal/model"
)

// Params holds the window/period/multiplier configuration for the pipeline.
type Params struct {
	VolatilityWindow int
	BBWindow         int
	BBStdMult        float64
	KCWindow         int
	KCMult           float64
	ADXPeriod        int
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
}

// DefaultParams mirrors the stock strategy configuration.
func DefaultParams() Params {
	return Params{
		VolatilityWindow: 20,
		BBWindow:         20,
		BBStdMult:        2.0,
		KCWindow:         20,
		KCMult:           1.5,
		ADXPeriod:        14,
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
	}
}

// Snapshot is the derived state at one candle index. Rolling fields are
// optional; Squeeze is undefined while any of the four bands is.
type Snapshot struct {
	Time  time.Time
	Close float64

	Volatility Value
	BBUpper    Value
	BBMiddle   Value
	BBLower    Value
	KCUpper    Value
	KCMiddle   Value
	KCLower    Value
	ADX        Value
	RSI        Value
	MACD       Value
	MACDSignal Value
	Squeeze    Flag
}

// Compute runs the full pipeline over a series, producing one snapshot per
// candle, aligned by index.
func Compute(series model.Series, p Params) []Snapshot {
	closes := series.Closes()
	lifted := defined(closes)

	volatility := rollingStd(pctChange(closes), p.VolatilityWindow)
	bbUpper, bbMiddle, bbLower := bollinger(lifted, p.BBWindow, p.BBStdMult)
	kcUpper, kcMiddle, kcLower := keltner(series, lifted, p.KCWindow, p.KCMult)
	adx := adxSeries(series, p.ADXPeriod)
	rsi := rsiSeries(closes, p.RSIPeriod)
	macd, macdSignal := macdSeries(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)

	snaps := make([]Snapshot, len(series))
	for i := range series {
		s := Snapshot{
			Time:       series[i].OpenTime,
			Close:      closes[i],
			Volatility: volatility[i],
			BBUpper:    bbUpper[i],
			BBMiddle:   bbMiddle[i],
			BBLower:    bbLower[i],
			KCUpper:    kcUpper[i],
			KCMiddle:   kcMiddle[i],
			KCLower:    kcLower[i],
			ADX:        adx[i],
			RSI:        rsi[i],
			MACD:       macd[i],
			MACDSignal: macdSignal[i],
		}
		bu, ok1 := s.BBUpper.Get()
		bl, ok2 := s.BBLower.Get()
		ku, ok3 := s.KCUpper.Get()
		kl, ok4 := s.KCLower.Get()
		if ok1 && ok2 && ok3 && ok4 {
			s.Squeeze = FlagOf(bu < ku && bl > kl)
		}
		snaps[i] = s
	}
	return snaps
}

// MeanVolatility averages the defined volatility entries of a snapshot run.
// Undefined when no entry is defined.
func MeanVolatility(snaps []Snapshot) Value {
	sum := 0.0
	n := 0
	for i := range snaps {
		if v, ok := snaps[i].Volatility.Get(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return Value{}
	}
	return Defined(sum / float64(n))
}
