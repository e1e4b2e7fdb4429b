package recorder

import (
	"context"
	"sort"
	"sync"
	"time"

	"TickerTracker/internal/model"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu        sync.Mutex
	articles  map[string]model.NewsArticle
	snapshots []SnapshotRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{articles: make(map[string]model.NewsArticle)}
}

func (m *MemoryStore) UpsertArticles(_ context.Context, articles []model.NewsArticle) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, a := range articles {
		existing, ok := m.articles[a.ID]
		if !ok {
			m.articles[a.ID] = cloneArticle(a)
			inserted++
			continue
		}
		existing.Headline = a.Headline
		existing.Summary = a.Summary
		existing.Source = a.Source
		existing.PublishedAt = a.PublishedAt
		m.articles[a.ID] = existing
	}
	return inserted, nil
}

func (m *MemoryStore) FindUnscored(_ context.Context, limit int) ([]model.NewsArticle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.NewsArticle
	for _, a := range m.articles {
		if !a.Scored() {
			out = append(out, cloneArticle(a))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) FindRecent(_ context.Context, instrument string, seg model.Segment, limit int) ([]model.NewsArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.NewsArticle
	for _, a := range m.articles {
		if a.Symbol == instrument && a.Segment == seg {
			out = append(out, cloneArticle(a))
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) WriteSentiment(_ context.Context, id string, compound float64, b model.SentimentBreakdown, analyzedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.articles[id]
	if !ok || a.Scored() {
		return false, nil
	}
	a.SentimentScore = model.Float(compound)
	a.Sentiment = &b
	at := analyzedAt
	a.AnalyzedAt = &at
	m.articles[id] = a
	return true, nil
}

func (m *MemoryStore) RecordSnapshot(_ context.Context, rec SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, rec)
	return nil
}

// Snapshots returns every recorded snapshot in insertion order.
func (m *MemoryStore) Snapshots() []SnapshotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SnapshotRecord(nil), m.snapshots...)
}

func (m *MemoryStore) LatestSnapshot(_ context.Context, instrument string, seg model.Segment) (model.IndicatorSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		latest model.IndicatorSnapshot
		found  bool
	)
	for _, r := range m.snapshots {
		if r.Instrument != instrument || r.Segment != seg {
			continue
		}
		// Later inserts win ties.
		if !found || !r.Snapshot.ComputedAt.Before(latest.ComputedAt) {
			latest, found = r.Snapshot, true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) Close() error { return nil }

func sortNewestFirst(a []model.NewsArticle) {
	sort.Slice(a, func(i, j int) bool {
		if a[i].PublishedAt.Equal(a[j].PublishedAt) {
			return a[i].ID < a[j].ID
		}
		return a[i].PublishedAt.After(a[j].PublishedAt)
	})
}

func cloneArticle(a model.NewsArticle) model.NewsArticle {
	if a.SentimentScore != nil {
		a.SentimentScore = model.Float(*a.SentimentScore)
	}
	if a.Sentiment != nil {
		b := *a.Sentiment
		a.Sentiment = &b
	}
	if a.AnalyzedAt != nil {
		t := *a.AnalyzedAt
		a.AnalyzedAt = &t
	}
	return a
}
