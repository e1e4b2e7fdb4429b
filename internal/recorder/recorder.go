package recorder

import (
	"context"
	"time"

	"TickerTracker/internal/model"
)

// ArticleStore persists news articles and their sentiment scores.
type ArticleStore interface {
	// UpsertArticles inserts new articles and refreshes the text of known
	// ones. Existing sentiment is never overwritten. Returns the number of
	// articles that were new.
	UpsertArticles(ctx context.Context, articles []model.NewsArticle) (int, error)
	// FindUnscored returns articles without a sentiment score.
	FindUnscored(ctx context.Context, limit int) ([]model.NewsArticle, error)
	// FindRecent returns the most recent articles for an instrument, newest first.
	FindRecent(ctx context.Context, instrument string, seg model.Segment, limit int) ([]model.NewsArticle, error)
	// WriteSentiment stores a score for an article that has none yet. It
	// reports false when the article was already scored or does not exist.
	WriteSentiment(ctx context.Context, id string, compound float64, breakdown model.SentimentBreakdown, analyzedAt time.Time) (bool, error)
}

// SnapshotRecord is one persisted indicator computation.
type SnapshotRecord struct {
	Instrument string
	Segment    model.Segment
	Snapshot   model.IndicatorSnapshot
}

// SnapshotRecorder persists indicator snapshots for later analysis.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, rec SnapshotRecord) error
}

// SnapshotHistory reads back recorded snapshots.
type SnapshotHistory interface {
	// LatestSnapshot returns the most recent snapshot for an instrument;
	// ok is false when none was recorded.
	LatestSnapshot(ctx context.Context, instrument string, seg model.Segment) (snap model.IndicatorSnapshot, ok bool, err error)
}

// Store is the full persistence surface.
type Store interface {
	ArticleStore
	SnapshotRecorder
	SnapshotHistory
	Close() error
}
