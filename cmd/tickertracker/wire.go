package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TickerTracker/internal/collector"
	"TickerTracker/internal/config"
	"TickerTracker/internal/logger"
	"TickerTracker/internal/news"
	"TickerTracker/internal/recorder"
	"TickerTracker/internal/sentiment"
)

// openStore opens the configured database, falling back to an in-memory
// store so the service keeps answering queries without persistence.
func openStore(ctx context.Context, cfg *config.Config) recorder.Store {
	if cfg.Database.Driver == recorder.DriverSQLite {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Warn(ctx, "create database directory", "dir", dir, "error", err)
			}
		}
	}
	s, err := recorder.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.ErrorWithErr(ctx, "open database failed, using in-memory store", err, "driver", cfg.Database.Driver)
		return recorder.NewMemoryStore()
	}
	return s
}

func newPriceSource(cfg *config.Config, timeout time.Duration) collector.PriceHistorySource {
	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, timeout)
	case "mock":
		return &collector.MockSource{}
	default:
		return collector.NewYahooSource(cfg.Proxy, timeout)
	}
}

func newNewsSource(cfg *config.Config, timeout time.Duration) news.Source {
	var sources []news.Source
	for _, p := range cfg.News.Providers {
		switch p {
		case "rss":
			sources = append(sources, news.NewRSSSource(cfg.News.Feeds, timeout))
		case "scrape":
			sources = append(sources, news.NewScrapeSource(cfg.News.Sites, timeout))
		case "mock":
			sources = append(sources, &news.MockSource{})
		}
	}
	if len(sources) == 1 {
		return sources[0]
	}
	return &news.MultiSource{Sources: sources}
}

func newScorer(lexiconPath string) (*sentiment.Scorer, error) {
	if lexiconPath == "" {
		return sentiment.NewScorer()
	}
	data, err := os.ReadFile(lexiconPath)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	lex, err := sentiment.ParseLexicon(data)
	if err != nil {
		return nil, err
	}
	return sentiment.NewScorerWithLexicon(lex), nil
}
