package news

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/model"
)

// RSSSource reads per-symbol RSS or Atom feeds. Feed URLs are templates in
// which {symbol} is replaced by the provider symbol.
type RSSSource struct {
	Feeds  []string
	Client *http.Client
	Now    func() time.Time
}

// NewRSSSource creates an RSS source. Feeds without an http(s) scheme are dropped.
func NewRSSSource(feeds []string, timeout time.Duration) *RSSSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	valid := make([]string, 0, len(feeds))
	for _, f := range feeds {
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			valid = append(valid, f)
		}
	}
	return &RSSSource{
		Feeds:  valid,
		Client: &http.Client{Timeout: timeout},
		Now:    time.Now,
	}
}

func (r *RSSSource) Name() string { return "rss" }

func (r *RSSSource) FetchNews(ctx context.Context, q Query) ([]model.NewsArticle, error) {
	if len(r.Feeds) == 0 {
		return nil, errors.New("rss: no feeds configured")
	}
	var (
		out     []model.NewsArticle
		lastErr error
		failed  int
	)
	for _, tmpl := range r.Feeds {
		feedURL := strings.ReplaceAll(tmpl, "{symbol}", url.QueryEscape(q.Symbol))
		articles, err := r.fetchFeed(ctx, feedURL, q)
		if err != nil {
			logger.Warn(ctx, "rss feed failed", "url", feedURL, "error", err)
			lastErr = err
			failed++
			continue
		}
		out = append(out, articles...)
	}
	if failed == len(r.Feeds) {
		return nil, fmt.Errorf("rss: all feeds failed: %w", lastErr)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *RSSSource) fetchFeed(ctx context.Context, feedURL string, q Query) ([]model.NewsArticle, error) {
	fp := gofeed.NewParser()
	fp.Client = r.Client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	sourceName := strings.TrimSpace(feed.Title)
	if sourceName == "" {
		sourceName = "rss"
	}
	articles := make([]model.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		headline := PlainText(item.Title)
		if headline == "" {
			continue
		}
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		articles = append(articles, model.NewsArticle{
			ID:          ArticleID(q.Segment, q.Instrument, item.Link, headline),
			Symbol:      q.Instrument,
			Segment:     q.Segment,
			Headline:    headline,
			Summary:     PlainText(summary),
			Source:      sourceName,
			URL:         item.Link,
			PublishedAt: r.published(item),
		})
	}
	return articles, nil
}

func (r *RSSSource) published(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return r.Now().UTC()
	}
}
