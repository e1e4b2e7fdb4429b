package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/market"
	"TickerTracker/internal/notifier"
	"TickerTracker/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// ErrCycleRunning is returned when a cycle is requested while one is in flight.
var ErrCycleRunning = errors.New("ingestion cycle already running")

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Pipeline    *pipeline.Pipeline
	Registry    *market.Registry
	Notifier    notifier.Notifier
	Instruments []market.Instrument
	Ctx         context.Context

	cycleMu sync.Mutex
}

// NewScheduler creates a new Scheduler tracking every instrument in reg.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, reg *market.Registry, n notifier.Notifier) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{})),
		Pipeline:    p,
		Registry:    reg,
		Notifier:    n,
		Instruments: reg.Tracked(),
		Ctx:         ctx,
	}
}

// RegisterAll registers the ingestion cycle and the standalone sentiment backfill.
func (s *Scheduler) RegisterAll(ingestCron, backfillCron string) error {
	if _, err := s.Cron.AddFunc(ingestCron, s.ingestTask); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	if _, err := s.Cron.AddFunc(backfillCron, s.backfillTask); err != nil {
		return fmt.Errorf("register backfill task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.Ctx, "scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.Ctx, "scheduler stopped")
}

// RunCycleNow executes an ingestion cycle immediately and sends the digest.
// Overlapping cycles are rejected with ErrCycleRunning.
func (s *Scheduler) RunCycleNow(ctx context.Context) (pipeline.BatchReport, error) {
	if !s.cycleMu.TryLock() {
		return pipeline.BatchReport{}, ErrCycleRunning
	}
	defer s.cycleMu.Unlock()

	logger.Info(ctx, "running ingestion cycle", "instruments", len(s.Instruments))
	report := s.Pipeline.RunCycle(ctx, s.Instruments)
	s.trySend(ctx, notifier.FormatBatchReport(report))
	return report, nil
}

func (s *Scheduler) ingestTask() {
	if _, err := s.RunCycleNow(s.Ctx); err != nil {
		logger.Warn(s.Ctx, "skipping scheduled cycle", "error", err)
	}
}

func (s *Scheduler) backfillTask() {
	res, err := s.Pipeline.Engine.RunSentimentBackfill(s.Ctx)
	if err != nil {
		logger.ErrorWithErr(s.Ctx, "scheduled backfill", err)
		s.trySend(s.Ctx, fmt.Sprintf("❌ Sentiment backfill failed: %v", err))
		return
	}
	logger.Debug(s.Ctx, "scheduled backfill finished", "analyzed", res.AnalyzedCount, "failed", res.Failed)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Telegram appends @botname to commands in group chats.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch name {
	case "/insight", "/indicators":
		if len(args) == 0 {
			return "Usage: " + name + " SYMBOL [SEGMENT]"
		}
		symbol := strings.ToUpper(args[0])
		segName := ""
		if len(args) > 1 {
			segName = args[1]
		}
		seg, err := s.Registry.Parse(segName)
		if err != nil {
			return fmt.Sprintf("Unknown segment %q. Try /markets.", segName)
		}
		if name == "/indicators" {
			snap, err := s.Pipeline.Engine.GetIndicators(ctx, symbol, seg)
			if err != nil {
				return fmt.Sprintf("❌ Could not compute indicators for %s: %v", symbol, err)
			}
			return notifier.FormatIndicators(symbol, seg, snap)
		}
		res, err := s.Pipeline.Engine.GetInsight(ctx, symbol, seg)
		if err != nil {
			return fmt.Sprintf("❌ Could not build insight for %s: %v", symbol, err)
		}
		return notifier.FormatInsight(res)
	case "/backfill":
		res, err := s.Pipeline.Engine.RunSentimentBackfill(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Sentiment backfill failed: %v", err)
		}
		return fmt.Sprintf("🧠 Sentiment backfill: %d analyzed, %d failed", res.AnalyzedCount, res.Failed)
	case "/run":
		// The digest itself is delivered by RunCycleNow.
		if _, err := s.RunCycleNow(ctx); err != nil {
			return "⏳ " + err.Error()
		}
		return ""
	case "/markets":
		return notifier.FormatMarkets(s.Registry.Segments())
	default:
		return helpText
	}
}

const helpText = `Available commands:
• /insight SYMBOL [SEGMENT]
• /indicators SYMBOL [SEGMENT]
• /backfill
• /run
• /markets`

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		logger.ErrorWithErr(ctx, "send notification", err)
	}
}

// cronLogger routes cron's internal logging through the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}

var _ cron.Logger = cronLogger{}
