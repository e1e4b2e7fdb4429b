package calculator

import (
	"time"

	"TickerTracker/internal/model"
)

// Params configures the indicator windows.
type Params struct {
	RSIPeriod   int
	ShortWindow int
	LongWindow  int
}

// DefaultParams returns RSI(14) with 20/50 moving averages.
func DefaultParams() Params {
	return Params{RSIPeriod: 14, ShortWindow: 20, LongWindow: 50}
}

// MinSeriesLength is the number of prices needed for a complete snapshot.
func (p Params) MinSeriesLength() int {
	if p.RSIPeriod+1 > p.LongWindow {
		return p.RSIPeriod + 1
	}
	return p.LongWindow
}

// BuildSnapshot computes every indicator for the series. Short series
// produce a snapshot with missing fields rather than an error.
func BuildSnapshot(series model.PriceSeries, p Params) model.IndicatorSnapshot {
	closes := series.Closes()

	snap := model.IndicatorSnapshot{
		RSI:        ComputeRSI(closes, p.RSIPeriod),
		ComputedAt: time.Now().UTC(),
	}
	snap.ShortMA, snap.LongMA = ComputeMovingAverages(closes, p.ShortWindow, p.LongWindow)
	if last, ok := series.Last(); ok {
		snap.CurrentPrice = ptr(Round2(last.Close))
	}
	snap.Signal = ClassifySignal(snap.RSI, snap.CurrentPrice, snap.ShortMA, snap.LongMA)
	return snap
}
