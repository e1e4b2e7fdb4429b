package pipeline

import (
	"time"

	"TickerTracker/internal/model"
)

// Status summarizes the outcome of one instrument or one batch.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Step names used in InstrumentResult.Errors.
const (
	StepPrices   = "prices"
	StepSnapshot = "snapshot"
	StepNews     = "news"
	StepArticles = "articles"
	StepInsight  = "insight"
)

// StepError records a failed step for one instrument.
type StepError struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// InstrumentResult is the outcome of one instrument's cycle.
type InstrumentResult struct {
	Instrument  string                   `json:"instrument"`
	Segment     model.Segment            `json:"segment"`
	Status      Status                   `json:"status"`
	Snapshot    *model.IndicatorSnapshot `json:"snapshot,omitempty"`
	NewArticles int                      `json:"newArticles"`
	Insight     *model.InsightResult     `json:"insight,omitempty"`
	Errors      []StepError              `json:"errors,omitempty"`
}

func (r *InstrumentResult) fail(step string, err error) {
	r.Errors = append(r.Errors, StepError{Step: step, Error: err.Error()})
}

// degrade records err without downgrading an already failed result.
func (r *InstrumentResult) degrade(step string, err error) {
	r.fail(step, err)
	if r.Status == StatusOK {
		r.Status = StatusDegraded
	}
}

// BatchReport aggregates a full ingestion cycle.
type BatchReport struct {
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	Status     Status             `json:"status"`
	Results    []InstrumentResult `json:"results"`
	Backfill   BackfillResult     `json:"backfill"`
	// BackfillError is set when the backfill step itself failed.
	BackfillError string `json:"backfillError,omitempty"`
	OK            int    `json:"ok"`
	Degraded      int    `json:"degraded"`
	Failed        int    `json:"failed"`
}

func (b *BatchReport) tally() {
	b.OK, b.Degraded, b.Failed = 0, 0, 0
	for _, r := range b.Results {
		switch r.Status {
		case StatusOK:
			b.OK++
		case StatusDegraded:
			b.Degraded++
		case StatusFailed:
			b.Failed++
		}
	}
	switch {
	case len(b.Results) > 0 && b.Failed == len(b.Results):
		b.Status = StatusFailed
	case b.Failed > 0 || b.Degraded > 0 || b.BackfillError != "":
		b.Status = StatusDegraded
	default:
		b.Status = StatusOK
	}
}
