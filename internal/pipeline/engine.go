package pipeline

import (
	"context"
	"fmt"
	"time"

	"TickerTracker/internal/collector"
	"TickerTracker/internal/insight"
	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/model"
	"TickerTracker/internal/recorder"
	"TickerTracker/internal/sentiment"
)

// Engine exposes indicator, insight and sentiment backfill operations.
type Engine struct {
	Collector   *collector.Collector
	Registry    *market.Registry
	Articles    recorder.ArticleStore
	Scorer      *sentiment.Scorer
	Synthesizer *insight.Synthesizer
	WindowSize  int
	// BackfillBatch is the page size of one unscored-article read; 0 reads all at once.
	BackfillBatch int
	// History, when set, supplies the last recorded snapshot to insights
	// whose price source is unavailable.
	History recorder.SnapshotHistory
	Now     func() time.Time
}

// NewEngine wires an Engine with default window sizes.
func NewEngine(c *collector.Collector, reg *market.Registry, store recorder.ArticleStore, scorer *sentiment.Scorer) *Engine {
	return &Engine{
		Collector:   c,
		Registry:    reg,
		Articles:    store,
		Scorer:      scorer,
		Synthesizer: insight.NewSynthesizer(reg.Context),
		WindowSize:  sentiment.DefaultWindowSize,
		Now:         time.Now,
	}
}

// GetIndicators computes the current snapshot for an instrument.
func (e *Engine) GetIndicators(ctx context.Context, instrument string, seg model.Segment) (model.IndicatorSnapshot, error) {
	if err := e.Registry.Validate(seg); err != nil {
		return model.IndicatorSnapshot{}, err
	}
	return e.Collector.Collect(ctx, instrument, seg)
}

// Sentiment aggregates the stored scores of the most recent articles.
func (e *Engine) Sentiment(ctx context.Context, instrument string, seg model.Segment) (model.SentimentSummary, error) {
	articles, err := e.Articles.FindRecent(ctx, instrument, seg, e.WindowSize)
	if err != nil {
		return model.SentimentSummary{Instrument: instrument, Segment: seg}, fmt.Errorf("find recent articles: %w", err)
	}
	return sentiment.Aggregate(instrument, seg, articles, e.WindowSize), nil
}

// GetInsight computes indicators and sentiment and synthesizes the insight.
// Only caller errors (an invalid segment or a blank instrument) are returned:
// upstream failures degrade to the last recorded snapshot, or to empty
// inputs, and are reported on the result.
func (e *Engine) GetInsight(ctx context.Context, instrument string, seg model.Segment) (model.InsightResult, error) {
	if err := e.Registry.Validate(seg); err != nil {
		return model.InsightResult{}, err
	}
	instrument, err := e.Registry.BaseSymbol(instrument, seg)
	if err != nil {
		return model.InsightResult{}, err
	}
	if instrument == "" {
		return model.InsightResult{}, fmt.Errorf("%w: empty symbol", model.ErrInvalidInstrument)
	}

	var notes []string
	snap, err := e.Collector.Collect(ctx, instrument, seg)
	if err != nil {
		logger.Warn(ctx, "insight without fresh indicators", "symbol", instrument, "segment", seg, "error", err)
		notes = append(notes, err.Error())
		snap = e.lastKnownSnapshot(ctx, instrument, seg, &notes)
	}
	return e.insightFor(ctx, instrument, seg, snap, notes), nil
}

// lastKnownSnapshot falls back to the most recent recorded snapshot, or an
// empty one when there is no history.
func (e *Engine) lastKnownSnapshot(ctx context.Context, instrument string, seg model.Segment, notes *[]string) model.IndicatorSnapshot {
	empty := model.IndicatorSnapshot{Signal: model.SignalNeutral, ComputedAt: e.Now().UTC()}
	if e.History == nil {
		return empty
	}
	snap, ok, err := e.History.LatestSnapshot(ctx, instrument, seg)
	if err != nil {
		logger.Warn(ctx, "snapshot history unavailable", "symbol", instrument, "error", err)
		return empty
	}
	if !ok {
		return empty
	}
	*notes = append(*notes, "using snapshot recorded at "+snap.ComputedAt.UTC().Format(time.RFC3339))
	return snap
}

// insightFor combines an existing snapshot with stored sentiment.
func (e *Engine) insightFor(ctx context.Context, instrument string, seg model.Segment, snap model.IndicatorSnapshot, notes []string) model.InsightResult {
	summary, err := e.Sentiment(ctx, instrument, seg)
	if err != nil {
		logger.Warn(ctx, "insight without sentiment", "symbol", instrument, "segment", seg, "error", err)
		notes = append(notes, fmt.Errorf("%w: %w", model.ErrUpstreamUnavailable, err).Error())
	}
	res := e.Synthesizer.Synthesize(instrument, snap, summary, seg)
	res.Degraded = len(notes) > 0
	res.Notes = notes
	return res
}
