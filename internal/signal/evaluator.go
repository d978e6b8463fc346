// Package signal turns indicator snapshots into trading decisions.
package signal

import "squeezebot/internal/indicator"

// Action is the decision emitted for one analysis cycle.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Strategy tags name the rule that produced a signal.
const (
	StrategySqueeze = "BB_SQUEEZE"
	StrategyRSIMACD = "RSI_MACD"
)

// RSI bounds are fixed by design; widening them changes trading behavior.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// Signal is the outcome of one evaluation: what to do and why.
type Signal struct {
	Action   Action
	Strategy string
	Reason   string
}

func hold(reason string) Signal {
	return Signal{Action: ActionHold, Reason: reason}
}

// Thresholds carries the configurable evaluation thresholds.
type Thresholds struct {
	ADX float64
}

// Evaluate applies the rule set to the two most recent snapshots. Rules run
// in fixed priority: squeeze breakout first, then RSI momentum with MACD
// confirmation. All comparisons are strict; a value sitting exactly on a
// bound does not trigger.
//
// Any required field being undefined yields HOLD with reason
// "insufficient data".
func Evaluate(prev, curr indicator.Snapshot, meanVolatility indicator.Value, th Thresholds) Signal {
	prevSqueeze, ok1 := prev.Squeeze.Get()
	currSqueeze, ok2 := curr.Squeeze.Get()
	adx, ok3 := curr.ADX.Get()
	bbUpper, ok4 := curr.BBUpper.Get()
	bbLower, ok5 := curr.BBLower.Get()
	rsi, ok6 := curr.RSI.Get()
	macd, ok7 := curr.MACD.Get()
	macdSignal, ok8 := curr.MACDSignal.Get()
	vol, ok9 := curr.Volatility.Get()
	meanVol, ok10 := meanVolatility.Get()
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7 && ok8 && ok9 && ok10) {
		return hold("insufficient data")
	}

	// Rule 1: breakout out of a band squeeze, confirmed by trend strength.
	if prevSqueeze && !currSqueeze && adx > th.ADX {
		if curr.Close > bbUpper {
			return Signal{Action: ActionBuy, Strategy: StrategySqueeze, Reason: "Upward breakout from BB squeeze"}
		}
		if curr.Close < bbLower {
			return Signal{Action: ActionSell, Strategy: StrategySqueeze, Reason: "Downward breakout from BB squeeze"}
		}
	}

	// Rule 2: RSI extreme with MACD confirmation in a calm market.
	if vol < meanVol {
		if rsi < rsiOversold && macd > macdSignal {
			return Signal{Action: ActionBuy, Strategy: StrategyRSIMACD, Reason: "RSI oversold with MACD confirmation"}
		}
		if rsi > rsiOverbought && macd < macdSignal {
			return Signal{Action: ActionSell, Strategy: StrategyRSIMACD, Reason: "RSI overbought with MACD confirmation"}
		}
	}

	return hold("no clear signal")
}
