package indicator

import (
	"math"

	"squeezebot/internal/model"
)

// adxSeries computes Wilder's Average Directional Index, bounded [0,100].
//
// Warmup follows Wilder's original construction: period candles seed the
// smoothed TR/+DM/-DM averages, then period DX values seed the ADX, so the
// first defined entry is at index 2*period.
func adxSeries(series model.Series, period int) []Value {
	out := make([]Value, len(series))
	if period <= 0 || len(series) <= 2*period {
		return out
	}

	var (
		tr14, pdm14, mdm14 float64
		dxSum              float64
		adx                float64
		seeded             bool
	)
	p := float64(period)

	for i := 1; i < len(series); i++ {
		cur, prev := series[i], series[i-1]

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low
		pdm, mdm := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			pdm = upMove
		}
		if downMove > upMove && downMove > 0 {
			mdm = downMove
		}
		tr := trueRange(cur, prev)

		if i <= period {
			tr14 += tr
			pdm14 += pdm
			mdm14 += mdm
			if i == period {
				tr14 /= p
				pdm14 /= p
				mdm14 /= p
			}
			continue
		}

		tr14 = (tr14*(p-1) + tr) / p
		pdm14 = (pdm14*(p-1) + pdm) / p
		mdm14 = (mdm14*(p-1) + mdm) / p

		dx := 0.0
		if tr14 > 0 {
			pdi := 100.0 * (pdm14 / tr14)
			mdi := 100.0 * (mdm14 / tr14)
			if den := pdi + mdi; den > 0 {
				dx = 100.0 * math.Abs(pdi-mdi) / den
			}
		}

		switch {
		case !seeded && i < 2*period:
			dxSum += dx
		case !seeded && i == 2*period:
			dxSum += dx
			adx = dxSum / p
			seeded = true
			out[i] = Defined(adx)
		default:
			adx = (adx*(p-1) + dx) / p
			out[i] = Defined(adx)
		}
	}
	return out
}
