package news

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/model"
)

// Query selects news for one instrument.
type Query struct {
	Instrument string
	Segment    model.Segment
	// Symbol is the provider symbol, e.g. RELIANCE.NS.
	Symbol string
	Limit  int
}

// Source retrieves news articles. Returned articles are unscored.
type Source interface {
	FetchNews(ctx context.Context, q Query) ([]model.NewsArticle, error)
	Name() string
}

// ArticleID derives a stable id from the instrument and the article URL,
// so re-ingesting a story updates it instead of duplicating it, while the
// same story in two instruments' feeds is kept once per instrument.
func ArticleID(seg model.Segment, instrument, rawURL, fallback string) string {
	key := strings.TrimSpace(rawURL)
	if key == "" {
		key = fallback
	}
	name := string(seg) + "|" + strings.ToUpper(strings.TrimSpace(instrument)) + "|" + key
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// MultiSource queries several sources and merges their results. A query
// fails only when every source fails.
type MultiSource struct {
	Sources []Source
}

func (m *MultiSource) Name() string {
	names := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m *MultiSource) FetchNews(ctx context.Context, q Query) ([]model.NewsArticle, error) {
	var (
		out  []model.NewsArticle
		errs []error
		seen = make(map[string]bool)
	)
	for _, s := range m.Sources {
		articles, err := s.FetchNews(ctx, q)
		if err != nil {
			logger.Warn(ctx, "news source failed", "source", s.Name(), "symbol", q.Symbol, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		for _, a := range articles {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			out = append(out, a)
		}
	}
	if len(errs) > 0 && len(errs) == len(m.Sources) {
		return nil, errors.Join(errs...)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
