package recorder

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TickerTracker/internal/model"
	"TickerTracker/internal/news"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testArticle(id, symbol string, seg model.Segment, age time.Duration) model.NewsArticle {
	return model.NewsArticle{
		ID:          id,
		Symbol:      symbol,
		Segment:     seg,
		Headline:    "Headline " + id,
		Summary:     "Summary " + id,
		Source:      "Test",
		URL:         "https://example.com/" + id,
		PublishedAt: base.Add(-age),
	}
}

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": openSQLite(t),
	}
}

func TestUpsertArticles(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.UpsertArticles(ctx, []model.NewsArticle{
				testArticle("a1", "AAPL", model.SegmentUS, time.Hour),
				testArticle("a2", "AAPL", model.SegmentUS, 2*time.Hour),
			})
			if err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			if n != 2 {
				t.Errorf("expected 2 inserted, got %d", n)
			}

			updated := testArticle("a1", "AAPL", model.SegmentUS, time.Hour)
			updated.Headline = "Updated"
			n, err = s.UpsertArticles(ctx, []model.NewsArticle{updated})
			if err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			if n != 0 {
				t.Errorf("expected 0 inserted on update, got %d", n)
			}

			recent, err := s.FindRecent(ctx, "AAPL", model.SegmentUS, 10)
			if err != nil {
				t.Fatalf("FindRecent: %v", err)
			}
			if len(recent) != 2 {
				t.Fatalf("expected 2 articles, got %d", len(recent))
			}
			if recent[0].ID != "a1" || recent[0].Headline != "Updated" {
				t.Errorf("unexpected newest article: %+v", recent[0])
			}
			if !recent[0].PublishedAt.Equal(base.Add(-time.Hour)) {
				t.Errorf("published time not preserved: %v", recent[0].PublishedAt)
			}
		})
	}
}

func TestWriteSentiment_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.UpsertArticles(ctx, []model.NewsArticle{testArticle("a1", "BTC", model.SegmentCrypto, 0)}); err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			b := model.SentimentBreakdown{Positive: 0.4, Neutral: 0.6, Compound: 0.5}
			ok, err := s.WriteSentiment(ctx, "a1", 0.5, b, base)
			if err != nil || !ok {
				t.Fatalf("first write: ok=%v err=%v", ok, err)
			}
			ok, err = s.WriteSentiment(ctx, "a1", -0.9, b, base)
			if err != nil {
				t.Fatalf("second write: %v", err)
			}
			if ok {
				t.Error("second write should not overwrite an existing score")
			}
			ok, _ = s.WriteSentiment(ctx, "missing", 0.1, b, base)
			if ok {
				t.Error("write to unknown article reported success")
			}

			// Re-ingestion must not clear the score.
			if _, err := s.UpsertArticles(ctx, []model.NewsArticle{testArticle("a1", "BTC", model.SegmentCrypto, 0)}); err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			got, _ := s.FindRecent(ctx, "BTC", model.SegmentCrypto, 5)
			if len(got) != 1 || got[0].SentimentScore == nil || *got[0].SentimentScore != 0.5 {
				t.Fatalf("unexpected stored score: %+v", got)
			}
			if got[0].Sentiment == nil || got[0].Sentiment.Positive != 0.4 {
				t.Errorf("breakdown not stored: %+v", got[0].Sentiment)
			}
			if got[0].AnalyzedAt == nil || !got[0].AnalyzedAt.Equal(base) {
				t.Errorf("analyzedAt not stored: %v", got[0].AnalyzedAt)
			}
			unscored, _ := s.FindUnscored(ctx, 0)
			if len(unscored) != 0 {
				t.Errorf("expected no unscored articles, got %d", len(unscored))
			}
		})
	}
}

func TestWriteSentiment_Concurrent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.UpsertArticles(ctx, []model.NewsArticle{testArticle("a1", "AAPL", model.SegmentUS, 0)}); err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					ok, err := s.WriteSentiment(ctx, "a1", float64(i)/10, model.SentimentBreakdown{Neutral: 1}, base)
					if err != nil {
						t.Errorf("WriteSentiment: %v", err)
					}
					if ok {
						atomic.AddInt32(&wins, 1)
					}
				}(i)
			}
			wg.Wait()
			if wins != 1 {
				t.Errorf("expected exactly one successful write, got %d", wins)
			}
		})
	}
}

func TestFindRecent_FiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var batch []model.NewsArticle
			for i, id := range []string{"a", "b", "c", "d"} {
				batch = append(batch, testArticle(id, "TCS", model.SegmentIndia, time.Duration(i)*time.Hour))
			}
			batch = append(batch, testArticle("x", "TCS", model.SegmentUS, 0))
			if _, err := s.UpsertArticles(ctx, batch); err != nil {
				t.Fatalf("UpsertArticles: %v", err)
			}
			got, err := s.FindRecent(ctx, "TCS", model.SegmentIndia, 3)
			if err != nil {
				t.Fatalf("FindRecent: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 articles, got %d", len(got))
			}
			for i, want := range []string{"a", "b", "c"} {
				if got[i].ID != want {
					t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
				}
			}
			unscored, _ := s.FindUnscored(ctx, 2)
			if len(unscored) != 2 {
				t.Errorf("expected unscored limit of 2, got %d", len(unscored))
			}
		})
	}
}

func TestLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.LatestSnapshot(ctx, "AAPL", model.SegmentUS)
			if err != nil || ok {
				t.Fatalf("expected no snapshot, ok=%v err=%v", ok, err)
			}
			older := model.IndicatorSnapshot{
				RSI:          model.Float(41),
				CurrentPrice: model.Float(180),
				Signal:       model.SignalNeutral,
				ComputedAt:   base.Add(-time.Hour),
			}
			snap := model.IndicatorSnapshot{
				RSI:          model.Float(55.5),
				CurrentPrice: model.Float(190.12),
				Signal:       model.SignalNeutral,
				ComputedAt:   base,
			}
			for _, rec := range []SnapshotRecord{
				{Instrument: "AAPL", Segment: model.SegmentUS, Snapshot: snap},
				{Instrument: "AAPL", Segment: model.SegmentUS, Snapshot: older},
				{Instrument: "MSFT", Segment: model.SegmentUS, Snapshot: older},
			} {
				if err := s.RecordSnapshot(ctx, rec); err != nil {
					t.Fatalf("RecordSnapshot: %v", err)
				}
			}
			got, ok, err := s.LatestSnapshot(ctx, "AAPL", model.SegmentUS)
			if err != nil || !ok {
				t.Fatalf("LatestSnapshot: ok=%v err=%v", ok, err)
			}
			if got.RSI == nil || *got.RSI != 55.5 {
				t.Errorf("unexpected RSI: %v", got.RSI)
			}
			if got.ShortMA != nil || got.LongMA != nil {
				t.Error("absent fields should stay absent")
			}
			if !got.ComputedAt.Equal(base) {
				t.Errorf("unexpected timestamp: %v", got.ComputedAt)
			}
			if _, ok, _ := s.LatestSnapshot(ctx, "AAPL", model.SegmentCrypto); ok {
				t.Error("snapshots should be scoped by segment")
			}
		})
	}
}

func TestUpsertArticles_SharedStoryPerInstrument(t *testing.T) {
	ctx := context.Background()
	link := "https://example.com/news/chip-shortage"
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, sym := range []string{"AAPL", "MSFT", "AAPL"} {
				a := testArticle("", sym, model.SegmentUS, time.Hour)
				a.ID = news.ArticleID(model.SegmentUS, sym, link, "")
				a.URL = link
				if _, err := s.UpsertArticles(ctx, []model.NewsArticle{a}); err != nil {
					t.Fatalf("UpsertArticles: %v", err)
				}
			}
			for _, sym := range []string{"AAPL", "MSFT"} {
				got, err := s.FindRecent(ctx, sym, model.SegmentUS, 10)
				if err != nil {
					t.Fatalf("FindRecent: %v", err)
				}
				if len(got) != 1 || got[0].Symbol != sym {
					t.Errorf("%s: expected the shared story once, got %+v", sym, got)
				}
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("unexpected postgres query: %s", got)
	}
	lite := &SQLStore{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be unchanged: %s", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
