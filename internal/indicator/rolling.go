package indicator

import "math"

// Rolling-window primitives over optional series. An undefined entry inside
// a window makes that window's output undefined, so gaps at the head of a
// derived series (e.g. the missing first percentage change) propagate
// instead of silently shrinking the window.

// pctChange returns the period-over-period percentage change of xs.
// The first entry is undefined: there is no previous value to compare.
func pctChange(xs []float64) []Value {
	out := make([]Value, len(xs))
	for i := 1; i < len(xs); i++ {
		if xs[i-1] == 0 {
			continue
		}
		out[i] = Defined((xs[i] - xs[i-1]) / xs[i-1])
	}
	return out
}

// rollingMean computes the mean over a trailing window of size window.
// out[i] is undefined while fewer than window entries are available or any
// entry in the window is undefined.
func rollingMean(xs []Value, window int) []Value {
	out := make([]Value, len(xs))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			v, defined := xs[j].Get()
			if !defined {
				ok = false
				break
			}
			sum += v
		}
		if ok {
			out[i] = Defined(sum / float64(window))
		}
	}
	return out
}

// rollingStd computes the sample standard deviation (n-1 denominator, the
// pandas default) over a trailing window of size window. Undefined under the
// same conditions as rollingMean; windows smaller than 2 are undefined.
func rollingStd(xs []Value, window int) []Value {
	out := make([]Value, len(xs))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			v, defined := xs[j].Get()
			if !defined {
				ok = false
				break
			}
			sum += v
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			v, _ := xs[j].Get()
			d := v - mean
			ss += d * d
		}
		out[i] = Defined(math.Sqrt(ss / float64(window-1)))
	}
	return out
}

// defined lifts a plain float series into an all-defined optional series.
func defined(xs []float64) []Value {
	out := make([]Value, len(xs))
	for i, v := range xs {
		out[i] = Defined(v)
	}
	return out
}
