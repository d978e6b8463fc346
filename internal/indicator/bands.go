package indicator

import (
	"math"

	"squeezebot/internal/model"
)

// bollinger computes the three Bollinger Bands series: a rolling mean of the
// close plus bands at ±mult rolling standard deviations.
func bollinger(closes []Value, window int, mult float64) (upper, middle, lower []Value) {
	middle = rollingMean(closes, window)
	std := rollingStd(closes, window)
	upper = make([]Value, len(closes))
	lower = make([]Value, len(closes))
	for i := range closes {
		m, ok1 := middle[i].Get()
		s, ok2 := std[i].Get()
		if ok1 && ok2 {
			upper[i] = Defined(m + mult*s)
			lower[i] = Defined(m - mult*s)
		}
	}
	return upper, middle, lower
}

// keltner computes the Keltner Channels: a rolling mean of the close plus
// bands at ±mult average true ranges. The true range needs a previous close,
// so the first entry (and every ATR window containing it) is undefined.
func keltner(series model.Series, closes []Value, window int, mult float64) (upper, middle, lower []Value) {
	tr := trueRanges(series)
	atr := rollingMean(tr, window)
	middle = rollingMean(closes, window)
	upper = make([]Value, len(series))
	lower = make([]Value, len(series))
	for i := range series {
		m, ok1 := middle[i].Get()
		a, ok2 := atr[i].Get()
		if ok1 && ok2 {
			upper[i] = Defined(m + mult*a)
			lower[i] = Defined(m - mult*a)
		}
	}
	return upper, middle, lower
}

// trueRanges returns the per-candle true range series, undefined at index 0.
func trueRanges(series model.Series) []Value {
	out := make([]Value, len(series))
	for i := 1; i < len(series); i++ {
		out[i] = Defined(trueRange(series[i], series[i-1]))
	}
	return out
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(current, previous model.Candle) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - previous.Close)
	lc := math.Abs(current.Low - previous.Close)
	return math.Max(hl, math.Max(hc, lc))
}
