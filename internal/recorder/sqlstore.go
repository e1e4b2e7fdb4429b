package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"TickerTracker/internal/logger"
	"TickerTracker/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore persists articles and snapshots in SQLite or PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	// serializes writes on SQLite, which allows a single writer
	mu sync.Mutex
}

// Open connects to the database for driver and runs migrations.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(ctx, "article store opened", "driver", driver)
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS news_articles (
			id                 TEXT PRIMARY KEY,
			symbol             TEXT NOT NULL,
			segment            TEXT NOT NULL,
			headline           TEXT NOT NULL,
			summary            TEXT,
			source             TEXT,
			url                TEXT,
			published_at       BIGINT NOT NULL,
			sentiment_score    DOUBLE PRECISION,
			sentiment_positive DOUBLE PRECISION,
			sentiment_neutral  DOUBLE PRECISION,
			sentiment_negative DOUBLE PRECISION,
			analyzed_at        BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_symbol ON news_articles(symbol, segment, published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_unscored ON news_articles(sentiment_score)`,

		`CREATE TABLE IF NOT EXISTS indicator_snapshots (
			id            ` + idColumn + `,
			timestamp     BIGINT NOT NULL,
			symbol        TEXT NOT NULL,
			segment       TEXT NOT NULL,
			current_price DOUBLE PRECISION,
			rsi           DOUBLE PRECISION,
			short_ma      DOUBLE PRECISION,
			long_ma       DOUBLE PRECISION,
			signal        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON indicator_snapshots(symbol, segment, timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) lockWrites() func() {
	if s.driver != DriverSQLite {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *SQLStore) UpsertArticles(ctx context.Context, articles []model.NewsArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	defer s.lockWrites()()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	exists, err := tx.PrepareContext(ctx, s.rebind(`SELECT 1 FROM news_articles WHERE id = ?`))
	if err != nil {
		return 0, fmt.Errorf("prepare lookup: %w", err)
	}
	defer exists.Close()

	upsert, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO news_articles
		(id, symbol, segment, headline, summary, source, url, published_at,
		 sentiment_score, sentiment_positive, sentiment_neutral, sentiment_negative, analyzed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			headline = excluded.headline,
			summary = excluded.summary,
			source = excluded.source,
			published_at = excluded.published_at`))
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	inserted := 0
	for _, a := range articles {
		var one int
		err := exists.QueryRowContext(ctx, a.ID).Scan(&one)
		isNew := errors.Is(err, sql.ErrNoRows)
		if err != nil && !isNew {
			return 0, fmt.Errorf("lookup %s: %w", a.ID, err)
		}

		score, pos, neu, neg, analyzed := sentimentColumns(a)
		if _, err := upsert.ExecContext(ctx,
			a.ID, a.Symbol, string(a.Segment), a.Headline, a.Summary, a.Source, a.URL,
			a.PublishedAt.UnixMilli(), score, pos, neu, neg, analyzed,
		); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", a.ID, err)
		}
		if isNew {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func sentimentColumns(a model.NewsArticle) (score, pos, neu, neg, analyzed any) {
	if a.SentimentScore == nil {
		return nil, nil, nil, nil, nil
	}
	score = *a.SentimentScore
	if a.Sentiment != nil {
		pos, neu, neg = a.Sentiment.Positive, a.Sentiment.Neutral, a.Sentiment.Negative
	}
	if a.AnalyzedAt != nil {
		analyzed = a.AnalyzedAt.UnixMilli()
	}
	return score, pos, neu, neg, analyzed
}

const articleColumns = `id, symbol, segment, headline, summary, source, url, published_at,
	sentiment_score, sentiment_positive, sentiment_neutral, sentiment_negative, analyzed_at`

func (s *SQLStore) FindUnscored(ctx context.Context, limit int) ([]model.NewsArticle, error) {
	q := `SELECT ` + articleColumns + ` FROM news_articles
		WHERE sentiment_score IS NULL ORDER BY published_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryArticles(ctx, s.rebind(q), args...)
}

func (s *SQLStore) FindRecent(ctx context.Context, instrument string, seg model.Segment, limit int) ([]model.NewsArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT ` + articleColumns + ` FROM news_articles
		WHERE symbol = ? AND segment = ? ORDER BY published_at DESC LIMIT ?`
	return s.queryArticles(ctx, s.rebind(q), instrument, string(seg), limit)
}

func (s *SQLStore) queryArticles(ctx context.Context, query string, args ...any) ([]model.NewsArticle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []model.NewsArticle
	for rows.Next() {
		var (
			a                  model.NewsArticle
			seg                string
			summary, src, url  sql.NullString
			published          int64
			score, pos, neu, n sql.NullFloat64
			analyzed           sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Symbol, &seg, &a.Headline, &summary, &src, &url, &published,
			&score, &pos, &neu, &n, &analyzed); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Segment = model.Segment(seg)
		a.Summary, a.Source, a.URL = summary.String, src.String, url.String
		a.PublishedAt = time.UnixMilli(published).UTC()
		if score.Valid {
			a.SentimentScore = model.Float(score.Float64)
			a.Sentiment = &model.SentimentBreakdown{
				Positive: pos.Float64,
				Neutral:  neu.Float64,
				Negative: n.Float64,
				Compound: score.Float64,
			}
		}
		if analyzed.Valid {
			t := time.UnixMilli(analyzed.Int64).UTC()
			a.AnalyzedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) WriteSentiment(ctx context.Context, id string, compound float64, b model.SentimentBreakdown, analyzedAt time.Time) (bool, error) {
	defer s.lockWrites()()

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE news_articles SET
			sentiment_score = ?, sentiment_positive = ?, sentiment_neutral = ?,
			sentiment_negative = ?, analyzed_at = ?
		WHERE id = ? AND sentiment_score IS NULL`),
		compound, b.Positive, b.Neutral, b.Negative, analyzedAt.UnixMilli(), id,
	)
	if err != nil {
		return false, fmt.Errorf("write sentiment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write sentiment %s: %w", id, err)
	}
	return n == 1, nil
}

func (s *SQLStore) RecordSnapshot(ctx context.Context, rec SnapshotRecord) error {
	defer s.lockWrites()()

	snap := rec.Snapshot
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO indicator_snapshots
		(timestamp, symbol, segment, current_price, rsi, short_ma, long_ma, signal)
		VALUES (?,?,?,?,?,?,?,?)`),
		snap.ComputedAt.Unix(), rec.Instrument, string(rec.Segment),
		nullable(snap.CurrentPrice), nullable(snap.RSI), nullable(snap.ShortMA), nullable(snap.LongMA),
		string(snap.Signal),
	)
	return err
}

// LatestSnapshot returns the most recent snapshot recorded for an instrument.
func (s *SQLStore) LatestSnapshot(ctx context.Context, instrument string, seg model.Segment) (model.IndicatorSnapshot, bool, error) {
	var (
		ts                   int64
		price, rsi, sma, lma sql.NullFloat64
		signal               string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT timestamp, current_price, rsi, short_ma, long_ma, signal
		FROM indicator_snapshots WHERE symbol = ? AND segment = ?
		ORDER BY timestamp DESC, id DESC LIMIT 1`), instrument, string(seg),
	).Scan(&ts, &price, &rsi, &sma, &lma, &signal)
	if errors.Is(err, sql.ErrNoRows) {
		return model.IndicatorSnapshot{}, false, nil
	}
	if err != nil {
		return model.IndicatorSnapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}
	return model.IndicatorSnapshot{
		CurrentPrice: fromNull(price),
		RSI:          fromNull(rsi),
		ShortMA:      fromNull(sma),
		LongMA:       fromNull(lma),
		Signal:       model.Signal(signal),
		ComputedAt:   time.Unix(ts, 0).UTC(),
	}, true, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return model.Float(v.Float64)
}

func (s *SQLStore) Close() error {
	logger.Info(context.Background(), "closing article store", "driver", s.driver)
	return s.db.Close()
}
