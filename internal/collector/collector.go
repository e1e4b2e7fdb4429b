package collector

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"TickerTracker/internal/calculator"
	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/model"
)

// Collector fetches price history and computes the indicator snapshot.
type Collector struct {
	Source   PriceHistorySource
	Registry *market.Registry
	Params   calculator.Params
	Lookback int
}

// NewCollector creates a Collector. A lookback too short for a complete
// snapshot is raised to the minimum plus a margin for RSI smoothing.
func NewCollector(src PriceHistorySource, reg *market.Registry, params calculator.Params, lookback int) *Collector {
	if need := params.MinSeriesLength(); lookback < need {
		lookback = need + 40
	}
	return &Collector{Source: src, Registry: reg, Params: params, Lookback: lookback}
}

// Collect computes the snapshot for an instrument. The segment is checked
// before any I/O. Source failures are wrapped in ErrUpstreamUnavailable;
// short history is not an error.
func (c *Collector) Collect(ctx context.Context, instrument string, seg model.Segment) (model.IndicatorSnapshot, error) {
	symbol, err := c.Registry.Symbol(instrument, seg)
	if err != nil {
		return model.IndicatorSnapshot{}, err
	}

	ctx, done := logger.Track(ctx, "collector.collect",
		attribute.String("symbol", symbol), attribute.String("source", c.Source.Name()))
	series, err := c.Source.GetRecentCloses(ctx, symbol, c.Lookback)
	if err != nil {
		err = fmt.Errorf("%w: %s %s: %w", model.ErrUpstreamUnavailable, c.Source.Name(), symbol, err)
		done(err)
		return model.IndicatorSnapshot{}, err
	}
	done(nil)

	if n := series.Len(); n < c.Params.MinSeriesLength() {
		logger.Warn(ctx, "short price history, snapshot will be partial",
			"symbol", symbol, "points", n, "needed", c.Params.MinSeriesLength())
	}
	return calculator.BuildSnapshot(series, c.Params), nil
}
