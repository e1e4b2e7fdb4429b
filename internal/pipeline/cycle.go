package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/news"
	"TickerTracker/internal/recorder"
)

// DefaultConcurrency bounds how many instruments are processed at once.
const DefaultConcurrency = 4

// Pipeline runs ingestion cycles over a set of instruments.
type Pipeline struct {
	Engine      *Engine
	News        news.Source
	Snapshots   recorder.SnapshotRecorder
	Concurrency int
	NewsLimit   int
}

// NewPipeline creates a Pipeline with default concurrency.
func NewPipeline(e *Engine, src news.Source, snaps recorder.SnapshotRecorder) *Pipeline {
	if snaps == nil {
		snaps = recorder.NewNoopRecorder()
	}
	return &Pipeline{Engine: e, News: src, Snapshots: snaps, Concurrency: DefaultConcurrency, NewsLimit: 10}
}

// RunCycle ingests prices and news for every instrument, backfills
// sentiment, then synthesizes an insight per instrument. Instruments run
// concurrently; the steps of one instrument run in order. A failing
// instrument never stops the others.
func (p *Pipeline) RunCycle(ctx context.Context, instruments []market.Instrument) BatchReport {
	ctx, done := logger.Track(ctx, "pipeline.cycle", attribute.Int("instruments", len(instruments)))
	report := BatchReport{StartedAt: p.Engine.Now().UTC()}
	logger.Info(ctx, "ingestion cycle started", "instruments", len(instruments))

	results := make([]InstrumentResult, len(instruments))
	workers := p.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, inst := range instruments {
		wg.Add(1)
		go func(i int, inst market.Instrument) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = InstrumentResult{Instrument: inst.Symbol, Segment: inst.Segment, Status: StatusFailed}
				results[i].fail(StepPrices, ctx.Err())
				return
			}
			results[i] = p.ingest(ctx, inst)
		}(i, inst)
	}
	wg.Wait()

	bf, err := p.Engine.RunSentimentBackfill(ctx)
	report.Backfill = bf
	if err != nil {
		logger.ErrorWithErr(ctx, "backfill step failed", err)
		report.BackfillError = err.Error()
	}

	for i := range results {
		r := &results[i]
		if r.Snapshot == nil {
			continue
		}
		res := p.Engine.insightFor(ctx, r.Instrument, r.Segment, *r.Snapshot, nil)
		for _, n := range res.Notes {
			r.degrade(StepInsight, errors.New(n))
		}
		r.Insight = &res
	}

	report.Results = results
	report.FinishedAt = p.Engine.Now().UTC()
	report.tally()
	logger.Info(ctx, "ingestion cycle finished",
		"status", report.Status, "ok", report.OK, "degraded", report.Degraded, "failed", report.Failed,
		"analyzed", report.Backfill.AnalyzedCount)
	done(nil)
	return report
}

// ingest runs the per-instrument steps in order.
func (p *Pipeline) ingest(ctx context.Context, inst market.Instrument) InstrumentResult {
	res := InstrumentResult{Instrument: inst.Symbol, Segment: inst.Segment, Status: StatusOK}
	ctx, span := logger.StartSpan(ctx, "pipeline.ingest",
		attribute.String("symbol", inst.Symbol), attribute.String("segment", string(inst.Segment)))
	defer span.End()

	symbol, err := p.Engine.Registry.Symbol(inst.Symbol, inst.Segment)
	if err != nil {
		res.Status = StatusFailed
		res.fail(StepPrices, err)
		return res
	}

	// News is still ingested when prices fail; the instrument is reported
	// as failed because it has no snapshot.
	snap, err := p.Engine.GetIndicators(ctx, inst.Symbol, inst.Segment)
	if err != nil {
		logger.ErrorWithErr(ctx, "price step failed", err, "symbol", inst.Symbol, "segment", inst.Segment)
		res.Status = StatusFailed
		res.fail(StepPrices, err)
	} else {
		res.Snapshot = &snap
		if err := p.Snapshots.RecordSnapshot(ctx, recorder.SnapshotRecord{
			Instrument: inst.Symbol, Segment: inst.Segment, Snapshot: snap,
		}); err != nil {
			logger.Warn(ctx, "snapshot not recorded", "symbol", inst.Symbol, "error", err)
			res.degrade(StepSnapshot, err)
		}
	}

	articles, err := p.News.FetchNews(ctx, news.Query{
		Instrument: inst.Symbol, Segment: inst.Segment, Symbol: symbol, Limit: p.NewsLimit,
	})
	if err != nil {
		logger.Warn(ctx, "news step failed", "symbol", inst.Symbol, "source", p.News.Name(), "error", err)
		res.degrade(StepNews, err)
		return res
	}
	n, err := p.Engine.Articles.UpsertArticles(ctx, articles)
	if err != nil {
		logger.Warn(ctx, "articles not stored", "symbol", inst.Symbol, "error", err)
		res.degrade(StepArticles, err)
		return res
	}
	res.NewArticles = n
	return res
}
