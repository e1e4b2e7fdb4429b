package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/model"
)

// Selectors are CSS selectors for extracting articles from a listing page.
type Selectors struct {
	Article     string `yaml:"article"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Summary     string `yaml:"summary"`
	PublishedAt string `yaml:"published_at"`
}

// Site describes one news listing page to scrape.
type Site struct {
	Name string `yaml:"name"`
	// BaseURL is the site root, e.g. https://www.moneycontrol.com
	BaseURL string `yaml:"base_url"`
	// SearchPath may contain {symbol}, replaced by the lowercase instrument.
	SearchPath string    `yaml:"search_path"`
	Selectors  Selectors `yaml:"selectors"`
}

// ScrapeSource scrapes listing pages of configured news sites.
type ScrapeSource struct {
	Sites   []Site
	Timeout time.Duration
	Now     func() time.Time
}

func NewScrapeSource(sites []Site, timeout time.Duration) *ScrapeSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ScrapeSource{Sites: sites, Timeout: timeout, Now: time.Now}
}

func (s *ScrapeSource) Name() string { return "scrape" }

func (s *ScrapeSource) FetchNews(ctx context.Context, q Query) ([]model.NewsArticle, error) {
	var (
		out     []model.NewsArticle
		lastErr error
		failed  int
	)
	for _, site := range s.Sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		articles, err := s.scrapeSite(ctx, site, q)
		if err != nil {
			logger.ErrorWithErr(ctx, "scrape failed", err, "site", site.Name, "symbol", q.Instrument)
			lastErr = err
			failed++
			continue
		}
		out = append(out, articles...)
	}
	if len(s.Sites) > 0 && failed == len(s.Sites) {
		return nil, fmt.Errorf("scrape: all sites failed: %w", lastErr)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *ScrapeSource) scrapeSite(ctx context.Context, site Site, q Query) ([]model.NewsArticle, error) {
	base, err := url.Parse(site.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := colly.NewCollector(
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.Timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (compatible; TickerTracker/1.0)")
	})

	var articles []model.NewsArticle
	c.OnHTML(site.Selectors.Article, func(e *colly.HTMLElement) {
		if q.Limit > 0 && len(articles) >= q.Limit {
			return
		}
		title := strings.TrimSpace(e.ChildText(site.Selectors.Title))
		link := e.ChildAttr(site.Selectors.Link, "href")
		if title == "" || link == "" {
			return
		}
		link = e.Request.AbsoluteURL(link)

		articles = append(articles, model.NewsArticle{
			ID:          ArticleID(q.Segment, q.Instrument, link, title),
			Symbol:      q.Instrument,
			Segment:     q.Segment,
			Headline:    title,
			Summary:     strings.Join(strings.Fields(e.ChildText(site.Selectors.Summary)), " "),
			Source:      site.Name,
			URL:         link,
			PublishedAt: s.parseTime(e.ChildText(site.Selectors.PublishedAt)),
		})
	})

	path := strings.ReplaceAll(site.SearchPath, "{symbol}", url.PathEscape(strings.ToLower(q.Instrument)))
	if err := c.Visit(strings.TrimRight(site.BaseURL, "/") + path); err != nil {
		return nil, fmt.Errorf("visit %s: %w", site.Name, err)
	}
	c.Wait()
	return articles, nil
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"Jan 2, 2006 03:04 PM",
	"January 2, 2006",
	"2006-01-02",
}

func (s *ScrapeSource) parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return s.Now().UTC()
}
