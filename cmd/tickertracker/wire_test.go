package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"TickerTracker/internal/config"
	"TickerTracker/internal/recorder"
)

func TestNewNewsSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.News.Providers = []string{"mock"}
	if got := newNewsSource(cfg, time.Second).Name(); got != "mock" {
		t.Errorf("expected mock, got %q", got)
	}

	cfg.News.Providers = []string{"rss", "mock"}
	cfg.News.Feeds = []string{"https://example.com/rss?s={symbol}"}
	if got := newNewsSource(cfg, time.Second).Name(); got != "rss+mock" {
		t.Errorf("expected rss+mock, got %q", got)
	}
}

func TestNewPriceSource(t *testing.T) {
	cfg := &config.Config{}
	for provider, want := range map[string]string{"mock": "mock", "yahoo": "yahoo", "": "yahoo"} {
		cfg.DataSource.Provider = provider
		if got := newPriceSource(cfg, time.Second).Name(); got != want {
			t.Errorf("provider %q: expected %q, got %q", provider, want, got)
		}
	}
}

func TestNewScorer(t *testing.T) {
	if _, err := newScorer(""); err != nil {
		t.Fatalf("embedded lexicon: %v", err)
	}

	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	os.WriteFile(path, []byte("words:\n  soar: 2.5\n"), 0o644)
	s, err := newScorer(path)
	if err != nil {
		t.Fatalf("custom lexicon: %v", err)
	}
	if s.Score("shares soar").Compound <= 0 {
		t.Error("expected positive score from custom lexicon")
	}

	if _, err := newScorer(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing lexicon")
	}
}

func TestOpenStore_FallsBackToMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	s := openStore(context.Background(), cfg)
	defer s.Close()
	if _, ok := s.(*recorder.MemoryStore); !ok {
		t.Errorf("expected memory fallback, got %T", s)
	}

	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "sub", "tt.db")
	s2 := openStore(context.Background(), cfg)
	defer s2.Close()
	if _, ok := s2.(*recorder.SQLStore); !ok {
		t.Errorf("expected sqlite store, got %T", s2)
	}
}
