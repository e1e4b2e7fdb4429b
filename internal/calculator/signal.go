package calculator

import "TickerTracker/internal/model"

// Classification thresholds.
const (
	OverboughtRSI = 70.0
	OversoldRSI   = 30.0
)

// ClassifySignal maps indicator values to a signal. RSI extremes take
// precedence over moving-average alignment. Any missing input is NEUTRAL.
func ClassifySignal(rsi, price, shortMA, longMA *float64) model.Signal {
	if rsi == nil || price == nil || shortMA == nil || longMA == nil {
		return model.SignalNeutral
	}
	switch {
	case *rsi > OverboughtRSI:
		return model.SignalOverbought
	case *rsi < OversoldRSI:
		return model.SignalOversold
	case *price > *shortMA && *shortMA > *longMA:
		return model.SignalBullish
	case *price < *shortMA && *shortMA < *longMA:
		return model.SignalBearish
	default:
		return model.SignalNeutral
	}
}
