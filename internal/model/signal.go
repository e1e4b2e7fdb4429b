package model

// Signal classifies the technical state of an instrument.
type Signal string

const (
	SignalNeutral    Signal = "NEUTRAL"
	SignalOverbought Signal = "OVERBOUGHT"
	SignalOversold   Signal = "OVERSOLD"
	SignalBullish    Signal = "BULLISH"
	SignalBearish    Signal = "BEARISH"
)

// Valid reports whether s is one of the known signals.
func (s Signal) Valid() bool {
	switch s {
	case SignalNeutral, SignalOverbought, SignalOversold, SignalBullish, SignalBearish:
		return true
	}
	return false
}
