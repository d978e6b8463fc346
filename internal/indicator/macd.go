package indicator

// emaSeries computes an exponential moving average seeded with the simple
// average of the first period entries. The input may have an undefined head
// (e.g. a MACD line); accumulation starts at the first defined entry and the
// output is defined once period entries past that point have been seen.
func emaSeries(xs []Value, period int) []Value {
	out := make([]Value, len(xs))
	if period <= 0 {
		return out
	}

	mult := 2.0 / float64(period+1)
	var (
		ema     float64
		sum     float64
		count   int
		started bool
	)
	for i, x := range xs {
		v, ok := x.Get()
		if !ok {
			if started {
				// A gap after the head would desync the average; the
				// pipeline never produces one, so just stay undefined.
				return out
			}
			continue
		}
		started = true
		count++
		if count < period {
			sum += v
			continue
		}
		if count == period {
			ema = (sum + v) / float64(period)
		} else {
			ema = (v-ema)*mult + ema
		}
		out[i] = Defined(ema)
	}
	return out
}

// macdSeries computes the MACD line (fast EMA − slow EMA) and its signal
// line (EMA of the MACD line). The MACD line is defined from index slow-1;
// the signal line signalPeriod-1 entries later.
func macdSeries(closes []float64, fast, slow, signalPeriod int) (macd, signalLine []Value) {
	lifted := defined(closes)
	fastEMA := emaSeries(lifted, fast)
	slowEMA := emaSeries(lifted, slow)

	macd = make([]Value, len(closes))
	for i := range closes {
		f, ok1 := fastEMA[i].Get()
		s, ok2 := slowEMA[i].Get()
		if ok1 && ok2 {
			macd[i] = Defined(f - s)
		}
	}
	signalLine = emaSeries(macd, signalPeriod)
	return macd, signalLine
}
