package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"TickerTracker/internal/api"
	"TickerTracker/internal/calculator"
	"TickerTracker/internal/collector"
	"TickerTracker/internal/config"
	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/notifier"
	"TickerTracker/internal/pipeline"
	"TickerTracker/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tickertracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Tracing: cfg.Logging.Tracing,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info(ctx, "TickerTracker starting", "config", cfgPath)

	reg, err := market.DefaultRegistry().WithInstruments(cfg.Pipeline.Instruments)
	if err != nil {
		return fmt.Errorf("configure instruments: %w", err)
	}

	store := openStore(ctx, cfg)
	defer store.Close()

	timeout := time.Duration(cfg.DataSource.TimeoutSeconds) * time.Second
	prices := newPriceSource(cfg, timeout)
	logger.Info(ctx, "price source ready", "source", prices.Name())

	newsSrc := newNewsSource(cfg, timeout)
	logger.Info(ctx, "news source ready", "source", newsSrc.Name())

	scorer, err := newScorer(cfg.Sentiment.LexiconPath)
	if err != nil {
		return fmt.Errorf("init sentiment scorer: %w", err)
	}

	params := calculator.Params{
		RSIPeriod:   cfg.Indicators.RSIPeriod,
		ShortWindow: cfg.Indicators.ShortWindow,
		LongWindow:  cfg.Indicators.LongWindow,
	}
	col := collector.NewCollector(prices, reg, params, cfg.DataSource.LookbackDays)

	eng := pipeline.NewEngine(col, reg, store, scorer)
	eng.WindowSize = cfg.Sentiment.WindowSize
	eng.BackfillBatch = cfg.Sentiment.BackfillBatch
	eng.History = store

	p := pipeline.NewPipeline(eng, newsSrc, store)
	p.Concurrency = cfg.Pipeline.Concurrency
	p.NewsLimit = cfg.News.MaxArticles

	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, p, reg, n)
	if err := sched.RegisterAll(cfg.Schedule.IngestCron, cfg.Schedule.BackfillCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info(ctx, "telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info(ctx, "RUN_ON_START enabled, executing ingestion cycle now")
		go func() {
			if _, err := sched.RunCycleNow(ctx); err != nil {
				logger.Warn(ctx, "startup cycle skipped", "error", err)
			}
		}()
	}

	srv := api.NewServer(cfg.Server.Addr, (&api.API{
		Engine:   eng,
		Registry: reg,
		Cycles:   sched,
		IsBusy:   func(err error) bool { return errors.Is(err, scheduler.ErrCycleRunning) },
	}).Router())

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "http shutdown", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "flush traces: %v\n", err)
	}
	logger.Info(shutdownCtx, "TickerTracker stopped")
	return nil
}
