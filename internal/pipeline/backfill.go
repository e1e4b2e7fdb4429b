package pipeline

import (
	"context"
	"fmt"

	"TickerTracker/internal/logger"
)

// BackfillResult reports one sentiment backfill run.
type BackfillResult struct {
	Candidates    int `json:"candidates"`
	AnalyzedCount int `json:"analyzedCount"`
	Failed        int `json:"failed"`
}

// RunSentimentBackfill scores every article that has no sentiment yet,
// reading them in pages of BackfillBatch until none are left. Writes are
// guarded by the store, so concurrent or repeated runs never score an
// article twice; AnalyzedCount counts only this run's writes.
func (e *Engine) RunSentimentBackfill(ctx context.Context) (BackfillResult, error) {
	ctx, done := logger.Track(ctx, "pipeline.backfill")

	var res BackfillResult
	// Articles whose write failed stay unscored and come back in later
	// pages; each is attempted once per run.
	seen := make(map[string]struct{})
	for {
		page, err := e.Articles.FindUnscored(ctx, e.BackfillBatch)
		if err != nil {
			err = fmt.Errorf("find unscored: %w", err)
			done(err)
			return res, err
		}

		fresh := 0
		for _, a := range page {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			fresh++
			if err := ctx.Err(); err != nil {
				done(err)
				return res, err
			}
			r := e.Scorer.ScoreArticle(a)
			ok, err := e.Articles.WriteSentiment(ctx, a.ID, r.Compound, r.Breakdown(), e.Now().UTC())
			if err != nil {
				logger.ErrorWithErr(ctx, "write sentiment failed", err, "article", a.ID)
				res.Failed++
				continue
			}
			if ok {
				res.AnalyzedCount++
			}
		}
		res.Candidates += fresh

		if e.BackfillBatch <= 0 || len(page) < e.BackfillBatch || fresh == 0 {
			break
		}
	}

	if res.Candidates == 0 {
		logger.Info(ctx, "sentiment backfill: nothing to analyze")
	} else {
		logger.Info(ctx, "sentiment backfill finished",
			"candidates", res.Candidates, "analyzed", res.AnalyzedCount, "failed", res.Failed)
	}
	done(nil)
	return res, nil
}
