package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TickerTracker/internal/model"
)

// MockSource produces three fixed stories per instrument for development.
type MockSource struct {
	Now func() time.Time
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchNews(_ context.Context, q Query) ([]model.NewsArticle, error) {
	now := time.Now().UTC()
	if m.Now != nil {
		now = m.Now().UTC()
	}
	sym := q.Instrument
	slug := strings.ToLower(string(q.Segment) + "/" + sym)

	templates := []struct {
		headline, summary, source, path string
		age                             time.Duration
	}{
		{
			headline: "%s Announces New Product Launch",
			summary:  "%s has announced a revolutionary new product that is expected to drive growth in the coming quarters.",
			source:   "Financial Times",
			path:     "product-launch",
		},
		{
			headline: "Analysts Upgrade %s to Buy Rating",
			summary:  "Leading analysts have upgraded %s from Hold to Buy based on strong quarterly results and positive outlook.",
			source:   "Wall Street Journal",
			path:     "upgrade",
			age:      2 * time.Hour,
		},
		{
			headline: "%s Faces Supply Chain Challenges",
			summary:  "%s reported minor supply chain disruptions that may affect Q4 delivery targets.",
			source:   "Bloomberg",
			path:     "supply-chain",
			age:      24 * time.Hour,
		},
	}

	out := make([]model.NewsArticle, 0, len(templates))
	for _, t := range templates {
		link := fmt.Sprintf("https://example.com/news/%s-%s", slug, t.path)
		out = append(out, model.NewsArticle{
			ID:          ArticleID(q.Segment, sym, link, ""),
			Symbol:      sym,
			Segment:     q.Segment,
			Headline:    fmt.Sprintf(t.headline, sym),
			Summary:     fmt.Sprintf(t.summary, sym),
			Source:      t.source,
			URL:         link,
			PublishedAt: now.Add(-t.age),
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
