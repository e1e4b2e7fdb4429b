package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TickerTracker/internal/calculator"
	"TickerTracker/internal/collector"
	"TickerTracker/internal/insight"
	"TickerTracker/internal/market"
	"TickerTracker/internal/model"
	"TickerTracker/internal/news"
	"TickerTracker/internal/recorder"
	"TickerTracker/internal/sentiment"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(100 + i)
	}
	return out
}

// selectiveSource fails for the listed provider symbols and tracks how many
// requests are in flight at once.
type selectiveSource struct {
	inner    collector.PriceHistorySource
	failing  map[string]bool
	delay    time.Duration
	inFlight int32
	peak     int32
	calls    int32
}

func (s *selectiveSource) Name() string { return "selective" }

func (s *selectiveSource) GetRecentCloses(ctx context.Context, symbol string, lookback int) (model.PriceSeries, error) {
	atomic.AddInt32(&s.calls, 1)
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failing[symbol] {
		return model.PriceSeries{}, errors.New("timeout")
	}
	return s.inner.GetRecentCloses(ctx, symbol, lookback)
}

func newTestEngine(t *testing.T, src collector.PriceHistorySource, store recorder.ArticleStore) *Engine {
	t.Helper()
	reg := market.DefaultRegistry()
	scorer, err := sentiment.NewScorer()
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	e := NewEngine(collector.NewCollector(src, reg, calculator.DefaultParams(), 0), reg, store, scorer)
	e.Now = func() time.Time { return fixedNow }
	return e
}

func scoredArticle(id, symbol string, seg model.Segment, age time.Duration, score float64) model.NewsArticle {
	return model.NewsArticle{
		ID:             id,
		Symbol:         symbol,
		Segment:        seg,
		Headline:       "h",
		PublishedAt:    fixedNow.Add(-age),
		SentimentScore: model.Float(score),
	}
}

func TestGetIndicators(t *testing.T) {
	src := &selectiveSource{inner: &collector.MockSource{Series: map[string][]float64{"AAPL": rising(60)}}}
	e := newTestEngine(t, src, recorder.NewMemoryStore())

	snap, err := e.GetIndicators(context.Background(), "AAPL", model.SegmentUS)
	if err != nil {
		t.Fatalf("GetIndicators: %v", err)
	}
	if snap.RSI == nil || *snap.RSI != 100 || snap.Signal != model.SignalOverbought {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := e.GetIndicators(context.Background(), "AAPL", "NYSE"); !errors.Is(err, model.ErrInvalidSegment) {
		t.Errorf("expected ErrInvalidSegment, got %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected exactly one source call, got %d", src.calls)
	}

	src.failing = map[string]bool{"AAPL": true}
	if _, err := e.GetIndicators(context.Background(), "AAPL", model.SegmentUS); !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestGetInsight(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	store.UpsertArticles(ctx, []model.NewsArticle{
		scoredArticle("1", "AAPL", model.SegmentUS, 0, 0.8),
		scoredArticle("2", "AAPL", model.SegmentUS, 2*time.Hour, 0.9),
		scoredArticle("3", "AAPL", model.SegmentUS, 24*time.Hour, -0.3),
	})
	src := &collector.MockSource{Series: map[string][]float64{"AAPL": rising(60)}}
	e := newTestEngine(t, src, store)

	res, err := e.GetInsight(ctx, "aapl", model.SegmentUS)
	if err != nil {
		t.Fatalf("GetInsight: %v", err)
	}
	want := insight.SentenceOverbought + " " + insight.SentencePositive
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
	if res.Sentiment.SampleSize != 3 {
		t.Errorf("expected 3 samples, got %d", res.Sentiment.SampleSize)
	}
	if res.Degraded {
		t.Errorf("unexpected degraded result: %v", res.Notes)
	}
}

func TestGetInsight_InsufficientData(t *testing.T) {
	src := &collector.MockSource{Series: map[string][]float64{"AAPL": {}}}
	e := newTestEngine(t, src, recorder.NewMemoryStore())
	res, err := e.GetInsight(context.Background(), "AAPL", model.SegmentUS)
	if err != nil {
		t.Fatalf("GetInsight: %v", err)
	}
	if res.Text != insight.SentenceInsufficient {
		t.Errorf("expected only the insufficient-data sentence, got %q", res.Text)
	}
	if res.Snapshot.Signal != model.SignalNeutral {
		t.Errorf("expected NEUTRAL, got %s", res.Snapshot.Signal)
	}
}

func TestGetInsight_DegradesOnUpstreamFailure(t *testing.T) {
	src := &collector.MockSource{Err: errors.New("dns failure")}
	e := newTestEngine(t, src, recorder.NewMemoryStore())
	res, err := e.GetInsight(context.Background(), "BTC", model.SegmentCrypto)
	if err != nil {
		t.Fatalf("GetInsight should degrade, got %v", err)
	}
	if !res.Degraded || len(res.Notes) == 0 {
		t.Error("expected degraded result with notes")
	}
	if !strings.Contains(res.Text, "Cryptocurrency.") {
		t.Errorf("expected crypto context, got %q", res.Text)
	}

	if _, err := e.GetInsight(context.Background(), "BTC", "forex"); !errors.Is(err, model.ErrInvalidSegment) {
		t.Errorf("expected ErrInvalidSegment, got %v", err)
	}
}

func TestGetInsight_FallsBackToRecordedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	recorded := model.IndicatorSnapshot{
		RSI:          model.Float(25),
		ShortMA:      model.Float(90),
		LongMA:       model.Float(95),
		CurrentPrice: model.Float(88),
		Signal:       model.SignalOversold,
		ComputedAt:   fixedNow.Add(-time.Hour),
	}
	store.RecordSnapshot(ctx, recorder.SnapshotRecord{Instrument: "AAPL", Segment: model.SegmentUS, Snapshot: recorded})

	e := newTestEngine(t, &collector.MockSource{Err: errors.New("dns failure")}, store)
	e.History = store

	res, err := e.GetInsight(ctx, "AAPL", model.SegmentUS)
	if err != nil {
		t.Fatalf("GetInsight: %v", err)
	}
	if !res.Degraded || len(res.Notes) != 2 {
		t.Fatalf("expected degraded result noting the stale snapshot, got %+v", res)
	}
	if res.Snapshot.Signal != model.SignalOversold || !res.Snapshot.ComputedAt.Equal(recorded.ComputedAt) {
		t.Errorf("expected the recorded snapshot, got %+v", res.Snapshot)
	}
	if !strings.Contains(res.Text, insight.SentenceOversold) {
		t.Errorf("insight should use the recorded RSI, got %q", res.Text)
	}

	// No history for this instrument: empty inputs as before.
	res, _ = e.GetInsight(ctx, "MSFT", model.SegmentUS)
	if res.Snapshot.RSI != nil || len(res.Notes) != 1 {
		t.Errorf("expected empty snapshot without history, got %+v", res)
	}
}

func TestGetInsight_RejectsBlankInstrument(t *testing.T) {
	src := &collector.MockSource{}
	e := newTestEngine(t, src, recorder.NewMemoryStore())
	for _, sym := range []string{"", "   ", ".NS"} {
		seg := model.SegmentUS
		if sym == ".NS" {
			seg = model.SegmentIndia
		}
		res, err := e.GetInsight(context.Background(), sym, seg)
		if !errors.Is(err, model.ErrInvalidInstrument) {
			t.Errorf("GetInsight(%q) = %+v, %v; want ErrInvalidInstrument", sym, res, err)
		}
	}
	if _, err := e.GetIndicators(context.Background(), " ", model.SegmentUS); !errors.Is(err, model.ErrInvalidInstrument) {
		t.Errorf("GetIndicators with blank symbol: got %v", err)
	}
}

func TestRunSentimentBackfill(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	e := newTestEngine(t, &collector.MockSource{}, store)

	res, err := e.RunSentimentBackfill(ctx)
	if err != nil || res.AnalyzedCount != 0 || res.Candidates != 0 {
		t.Fatalf("empty backfill: %+v, %v", res, err)
	}

	mock := &news.MockSource{Now: func() time.Time { return fixedNow }}
	articles, _ := mock.FetchNews(ctx, news.Query{Instrument: "AAPL", Segment: model.SegmentUS})
	store.UpsertArticles(ctx, articles)

	res, err = e.RunSentimentBackfill(ctx)
	if err != nil {
		t.Fatalf("RunSentimentBackfill: %v", err)
	}
	if res.AnalyzedCount != 3 {
		t.Errorf("expected 3 analyzed, got %d", res.AnalyzedCount)
	}

	res, _ = e.RunSentimentBackfill(ctx)
	if res.AnalyzedCount != 0 {
		t.Errorf("second run should analyze nothing, got %d", res.AnalyzedCount)
	}

	stored, _ := store.FindRecent(ctx, "AAPL", model.SegmentUS, 10)
	for _, a := range stored {
		if !a.Scored() || a.Sentiment == nil || a.AnalyzedAt == nil {
			t.Fatalf("article %s not fully scored: %+v", a.ID, a)
		}
		if !a.AnalyzedAt.Equal(fixedNow) {
			t.Errorf("unexpected analyzedAt %v", a.AnalyzedAt)
		}
		if a.Sentiment.Compound != *a.SentimentScore {
			t.Error("breakdown compound should match the score")
		}
	}
	sum, err := e.Sentiment(ctx, "AAPL", model.SegmentUS)
	if err != nil || sum.SampleSize != 3 {
		t.Errorf("expected 3 samples after backfill, got %+v, %v", sum, err)
	}
}

func TestRunSentimentBackfill_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	var batch []model.NewsArticle
	for i := 0; i < 40; i++ {
		batch = append(batch, model.NewsArticle{
			ID:          news.ArticleID(model.SegmentUS, "AAPL", "", string(rune('a'+i%26))+strings.Repeat("x", i)),
			Symbol:      "AAPL",
			Segment:     model.SegmentUS,
			Headline:    "Shares rally on strong demand",
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
		})
	}
	store.UpsertArticles(ctx, batch)
	e := newTestEngine(t, &collector.MockSource{}, store)

	var total int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.RunSentimentBackfill(ctx)
			if err != nil {
				t.Errorf("RunSentimentBackfill: %v", err)
			}
			atomic.AddInt32(&total, int32(res.AnalyzedCount))
		}()
	}
	wg.Wait()
	if total != 40 {
		t.Errorf("expected 40 writes across runs, got %d", total)
	}
}

type failingWrites struct {
	*recorder.MemoryStore
	failID string
}

func (f failingWrites) WriteSentiment(ctx context.Context, id string, c float64, b model.SentimentBreakdown, at time.Time) (bool, error) {
	if id == f.failID {
		return false, errors.New("disk full")
	}
	return f.MemoryStore.WriteSentiment(ctx, id, c, b, at)
}

func TestRunSentimentBackfill_WriteFailure(t *testing.T) {
	ctx := context.Background()
	mem := recorder.NewMemoryStore()
	mock := &news.MockSource{Now: func() time.Time { return fixedNow }}
	articles, _ := mock.FetchNews(ctx, news.Query{Instrument: "TCS", Segment: model.SegmentIndia})
	mem.UpsertArticles(ctx, articles)

	e := newTestEngine(t, &collector.MockSource{}, failingWrites{MemoryStore: mem, failID: articles[0].ID})
	res, err := e.RunSentimentBackfill(ctx)
	if err != nil {
		t.Fatalf("RunSentimentBackfill: %v", err)
	}
	if res.AnalyzedCount != 2 || res.Failed != 1 {
		t.Errorf("expected 2 analyzed and 1 failed, got %+v", res)
	}
}

func unscoredArticles(n int) []model.NewsArticle {
	out := make([]model.NewsArticle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.NewsArticle{
			ID:          news.ArticleID(model.SegmentUS, "MSFT", "", "MSFT|story "+strconv.Itoa(i)),
			Symbol:      "MSFT",
			Segment:     model.SegmentUS,
			Headline:    "Shares climb after strong results",
			PublishedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestRunSentimentBackfill_BacklogLargerThanBatch(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	store.UpsertArticles(ctx, unscoredArticles(25))

	e := newTestEngine(t, &collector.MockSource{}, store)
	e.BackfillBatch = 10

	res, err := e.RunSentimentBackfill(ctx)
	if err != nil {
		t.Fatalf("RunSentimentBackfill: %v", err)
	}
	if res.AnalyzedCount != 25 || res.Candidates != 25 {
		t.Errorf("expected the whole backlog analyzed, got %+v", res)
	}
	left, _ := store.FindUnscored(ctx, 0)
	if len(left) != 0 {
		t.Errorf("expected no unscored articles, got %d", len(left))
	}
	if res, _ := e.RunSentimentBackfill(ctx); res.AnalyzedCount != 0 {
		t.Errorf("second run should analyze nothing, got %+v", res)
	}
}

func TestRunSentimentBackfill_PagedWriteFailureTerminates(t *testing.T) {
	ctx := context.Background()
	mem := recorder.NewMemoryStore()
	articles := unscoredArticles(5)
	mem.UpsertArticles(ctx, articles)

	// The newest article fails on every attempt and keeps heading each page.
	e := newTestEngine(t, &collector.MockSource{}, failingWrites{MemoryStore: mem, failID: articles[0].ID})
	e.BackfillBatch = 2

	res, err := e.RunSentimentBackfill(ctx)
	if err != nil {
		t.Fatalf("RunSentimentBackfill: %v", err)
	}
	if res.AnalyzedCount != 4 || res.Failed != 1 || res.Candidates != 5 {
		t.Errorf("expected 4 analyzed and 1 failed once, got %+v", res)
	}
}

type failingNews struct{}

func (failingNews) Name() string { return "down" }

func (failingNews) FetchNews(context.Context, news.Query) ([]model.NewsArticle, error) {
	return nil, errors.New("503")
}

func TestRunCycle(t *testing.T) {
	ctx := context.Background()
	store := recorder.NewMemoryStore()
	src := &selectiveSource{
		inner:   &collector.MockSource{Now: fixedNow},
		failing: map[string]bool{"TCS.NS": true},
	}
	e := newTestEngine(t, src, store)
	p := NewPipeline(e, &news.MockSource{Now: func() time.Time { return fixedNow }}, store)

	instruments := []market.Instrument{
		{Symbol: "AAPL", Segment: model.SegmentUS},
		{Symbol: "TCS", Segment: model.SegmentIndia},
		{Symbol: "BTC", Segment: model.SegmentCrypto},
	}
	report := p.RunCycle(ctx, instruments)

	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	aapl, tcs, btc := report.Results[0], report.Results[1], report.Results[2]
	if aapl.Instrument != "AAPL" || tcs.Instrument != "TCS" || btc.Instrument != "BTC" {
		t.Fatal("results should keep input order")
	}
	if aapl.Status != StatusOK || btc.Status != StatusOK {
		t.Errorf("expected ok results, got %s and %s: %v %v", aapl.Status, btc.Status, aapl.Errors, btc.Errors)
	}
	if tcs.Status != StatusFailed || len(tcs.Errors) == 0 || tcs.Errors[0].Step != StepPrices {
		t.Errorf("expected TCS price failure, got %+v", tcs)
	}
	if tcs.Snapshot != nil || tcs.Insight != nil {
		t.Error("failed instrument should have no snapshot or insight")
	}
	if tcs.NewArticles != 3 {
		t.Errorf("news should still be ingested for TCS, got %d", tcs.NewArticles)
	}
	if btc.Insight == nil || !strings.Contains(btc.Insight.Text, "Cryptocurrency.") {
		t.Errorf("expected crypto insight, got %+v", btc.Insight)
	}
	if aapl.Insight == nil || aapl.Insight.Sentiment.SampleSize != 3 {
		t.Errorf("expected insight over 3 backfilled articles, got %+v", aapl.Insight)
	}
	if report.Backfill.AnalyzedCount != 9 {
		t.Errorf("expected 9 analyzed articles, got %d", report.Backfill.AnalyzedCount)
	}
	if report.Status != StatusDegraded || report.OK != 2 || report.Failed != 1 {
		t.Errorf("unexpected tally: %s ok=%d failed=%d", report.Status, report.OK, report.Failed)
	}
	if n := len(store.Snapshots()); n != 2 {
		t.Errorf("expected 2 recorded snapshots, got %d", n)
	}
}

func TestRunCycle_NewsDown(t *testing.T) {
	e := newTestEngine(t, &collector.MockSource{Now: fixedNow}, recorder.NewMemoryStore())
	p := NewPipeline(e, failingNews{}, nil)
	report := p.RunCycle(context.Background(), []market.Instrument{{Symbol: "AAPL", Segment: model.SegmentUS}})
	r := report.Results[0]
	if r.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", r.Status)
	}
	if r.Snapshot == nil || r.Insight == nil {
		t.Error("snapshot and insight should survive a news failure")
	}
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded batch, got %s", report.Status)
	}
}

func TestRunCycle_BoundedConcurrency(t *testing.T) {
	src := &selectiveSource{inner: &collector.MockSource{Now: fixedNow}, delay: 20 * time.Millisecond}
	e := newTestEngine(t, src, recorder.NewMemoryStore())
	p := NewPipeline(e, &news.MockSource{}, nil)
	p.Concurrency = 2

	report := p.RunCycle(context.Background(), market.DefaultRegistry().Tracked()[:8])
	if report.OK != 8 {
		t.Errorf("expected 8 ok results, got %d", report.OK)
	}
	if peak := atomic.LoadInt32(&src.peak); peak > 2 {
		t.Errorf("expected at most 2 concurrent fetches, got %d", peak)
	}
}

func TestBatchReport_AllFailed(t *testing.T) {
	b := BatchReport{Results: []InstrumentResult{{Status: StatusFailed}, {Status: StatusFailed}}}
	b.tally()
	if b.Status != StatusFailed {
		t.Errorf("expected failed, got %s", b.Status)
	}
	b = BatchReport{}
	b.tally()
	if b.Status != StatusOK {
		t.Errorf("expected ok for an empty batch, got %s", b.Status)
	}
}
