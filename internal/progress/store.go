package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrItemNotFound is returned when an operation references an unknown item.
var ErrItemNotFound = errors.New("item not found")

const metaLastModified = "last_modified_at"

// Store defines read and write operations over the live progress record set.
type Store interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	UpsertItem(ctx context.Context, item *Item) error
	AllItems(ctx context.Context) ([]Item, error)

	GetRecord(ctx context.Context, itemID string) (*ReviewRecord, error)
	UpsertRecord(ctx context.Context, record *ReviewRecord) error
	AllRecords(ctx context.Context) ([]ReviewRecord, error)
	DueRecords(ctx context.Context, now time.Time, limit int) ([]ReviewRecord, error)
	CountRecords(ctx context.Context) (int, error)

	GetStats(ctx context.Context) (*Stats, error)
	PutStats(ctx context.Context, stats *Stats) error

	LastModified(ctx context.Context) (time.Time, error)
	Wipe(ctx context.Context) error
}

// TxStore is a Store whose mutations can be grouped into a single transaction.
// WithTx runs fn against a transactional view of the store; any error from fn
// rolls every mutation back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// DBStore implements TxStore backed by SQLite through sqlx.
type DBStore struct {
	db *sqlx.DB
}

// NewDBStore creates a DBStore and bootstraps the schema.
func NewDBStore(ctx context.Context, db *sqlx.DB) (*DBStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("db.ExecContext(schema) > %w", err)
	}
	return &DBStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	expression TEXT NOT NULL,
	meaning TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS review_records (
	item_id TEXT PRIMARY KEY,
	ease_factor REAL NOT NULL DEFAULT 2.5,
	interval_days INTEGER NOT NULL DEFAULT 0,
	repetitions INTEGER NOT NULL DEFAULT 0,
	next_due_at TIMESTAMP NOT NULL,
	last_reviewed_at TIMESTAMP,
	total_reviews INTEGER NOT NULL DEFAULT 0,
	correct_reviews INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_review_records_next_due ON review_records (next_due_at);
CREATE TABLE IF NOT EXISTS study_stats (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	streak_days INTEGER NOT NULL DEFAULT 0,
	last_study_date TEXT NOT NULL DEFAULT '',
	daily_goal INTEGER NOT NULL DEFAULT 20,
	reviews_today INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// WithTx runs fn inside a single database transaction. Concurrent readers see
// either the state before the transaction or after it, never in between.
func (s *DBStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx() > %w", err)
	}
	if err := fn(&txStore{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx.Rollback() > %w (after: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit() > %w", err)
	}
	return nil
}

func (s *DBStore) GetItem(ctx context.Context, id string) (*Item, error) {
	return getItem(ctx, s.db, id)
}

func (s *DBStore) UpsertItem(ctx context.Context, item *Item) error {
	return upsertItem(ctx, s.db, item)
}

func (s *DBStore) AllItems(ctx context.Context) ([]Item, error) {
	return allItems(ctx, s.db)
}

func (s *DBStore) GetRecord(ctx context.Context, itemID string) (*ReviewRecord, error) {
	return getRecord(ctx, s.db, itemID)
}

func (s *DBStore) UpsertRecord(ctx context.Context, record *ReviewRecord) error {
	return upsertRecord(ctx, s.db, record)
}

func (s *DBStore) AllRecords(ctx context.Context) ([]ReviewRecord, error) {
	return allRecords(ctx, s.db)
}

func (s *DBStore) DueRecords(ctx context.Context, now time.Time, limit int) ([]ReviewRecord, error) {
	return dueRecords(ctx, s.db, now, limit)
}

func (s *DBStore) CountRecords(ctx context.Context) (int, error) {
	return countRecords(ctx, s.db)
}

func (s *DBStore) GetStats(ctx context.Context) (*Stats, error) {
	return getStats(ctx, s.db)
}

func (s *DBStore) PutStats(ctx context.Context, stats *Stats) error {
	return putStats(ctx, s.db, stats)
}

func (s *DBStore) LastModified(ctx context.Context) (time.Time, error) {
	return lastModified(ctx, s.db)
}

func (s *DBStore) Wipe(ctx context.Context) error {
	return s.WithTx(ctx, func(tx Store) error {
		return tx.Wipe(ctx)
	})
}

// txStore is the transactional view handed to WithTx callbacks.
type txStore struct {
	ext sqlx.ExtContext
}

func (t *txStore) GetItem(ctx context.Context, id string) (*Item, error) {
	return getItem(ctx, t.ext, id)
}

func (t *txStore) UpsertItem(ctx context.Context, item *Item) error {
	return upsertItem(ctx, t.ext, item)
}

func (t *txStore) AllItems(ctx context.Context) ([]Item, error) {
	return allItems(ctx, t.ext)
}

func (t *txStore) GetRecord(ctx context.Context, itemID string) (*ReviewRecord, error) {
	return getRecord(ctx, t.ext, itemID)
}

func (t *txStore) UpsertRecord(ctx context.Context, record *ReviewRecord) error {
	return upsertRecord(ctx, t.ext, record)
}

func (t *txStore) AllRecords(ctx context.Context) ([]ReviewRecord, error) {
	return allRecords(ctx, t.ext)
}

func (t *txStore) DueRecords(ctx context.Context, now time.Time, limit int) ([]ReviewRecord, error) {
	return dueRecords(ctx, t.ext, now, limit)
}

func (t *txStore) CountRecords(ctx context.Context) (int, error) {
	return countRecords(ctx, t.ext)
}

func (t *txStore) GetStats(ctx context.Context) (*Stats, error) {
	return getStats(ctx, t.ext)
}

func (t *txStore) PutStats(ctx context.Context, stats *Stats) error {
	return putStats(ctx, t.ext, stats)
}

func (t *txStore) LastModified(ctx context.Context) (time.Time, error) {
	return lastModified(ctx, t.ext)
}

func (t *txStore) Wipe(ctx context.Context) error {
	for _, stmt := range []string{
		"DELETE FROM review_records",
		"DELETE FROM items",
		"DELETE FROM study_stats",
	} {
		if _, err := t.ext.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ext.ExecContext(%s) > %w", stmt, err)
		}
	}
	return touch(ctx, t.ext)
}

func getItem(ctx context.Context, ext sqlx.ExtContext, id string) (*Item, error) {
	var item Item
	err := sqlx.GetContext(ctx, ext, &item, "SELECT * FROM items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(item %s) > %w", id, err)
	}
	return &item, nil
}

func upsertItem(ctx context.Context, ext sqlx.ExtContext, item *Item) error {
	_, err := ext.ExecContext(ctx,
		`INSERT INTO items (id, expression, meaning, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET expression = excluded.expression, meaning = excluded.meaning`,
		item.ID, item.Expression, item.Meaning, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("ext.ExecContext(upsert item %s) > %w", item.ID, err)
	}
	return touch(ctx, ext)
}

func allItems(ctx context.Context, ext sqlx.ExtContext) ([]Item, error) {
	var items []Item
	if err := sqlx.SelectContext(ctx, ext, &items, "SELECT * FROM items ORDER BY id"); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(items) > %w", err)
	}
	return items, nil
}

func getRecord(ctx context.Context, ext sqlx.ExtContext, itemID string) (*ReviewRecord, error) {
	var record ReviewRecord
	err := sqlx.GetContext(ctx, ext, &record, "SELECT * FROM review_records WHERE item_id = ?", itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(review_record %s) > %w", itemID, err)
	}
	return &record, nil
}

func upsertRecord(ctx context.Context, ext sqlx.ExtContext, record *ReviewRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	_, err := ext.ExecContext(ctx,
		`INSERT INTO review_records
			(item_id, ease_factor, interval_days, repetitions, next_due_at, last_reviewed_at, total_reviews, correct_reviews)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			ease_factor = excluded.ease_factor,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			next_due_at = excluded.next_due_at,
			last_reviewed_at = excluded.last_reviewed_at,
			total_reviews = excluded.total_reviews,
			correct_reviews = excluded.correct_reviews`,
		record.ItemID, record.EaseFactor, record.IntervalDays, record.Repetitions,
		record.NextDueAt, record.LastReviewedAt, record.TotalReviews, record.CorrectReviews)
	if err != nil {
		return fmt.Errorf("ext.ExecContext(upsert review_record %s) > %w", record.ItemID, err)
	}
	return touch(ctx, ext)
}

// validateRecord enforces the record invariants at the single write path so
// no caller can persist a state the scheduler could not have produced.
func validateRecord(record *ReviewRecord) error {
	switch {
	case record.ItemID == "":
		return errors.New("review record has empty item id")
	case record.EaseFactor < MinEaseFactor:
		return fmt.Errorf("ease factor %.2f below minimum %.1f", record.EaseFactor, MinEaseFactor)
	case record.IntervalDays < 0:
		return fmt.Errorf("negative interval %d", record.IntervalDays)
	case record.Repetitions < 0:
		return fmt.Errorf("negative repetitions %d", record.Repetitions)
	case record.CorrectReviews > record.TotalReviews:
		return fmt.Errorf("correct reviews %d exceed total %d", record.CorrectReviews, record.TotalReviews)
	}
	return nil
}

func allRecords(ctx context.Context, ext sqlx.ExtContext) ([]ReviewRecord, error) {
	var records []ReviewRecord
	if err := sqlx.SelectContext(ctx, ext, &records, "SELECT * FROM review_records ORDER BY item_id"); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(review_records) > %w", err)
	}
	return records, nil
}

func dueRecords(ctx context.Context, ext sqlx.ExtContext, now time.Time, limit int) ([]ReviewRecord, error) {
	query := "SELECT * FROM review_records WHERE next_due_at <= ? ORDER BY next_due_at"
	args := []any{now}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var records []ReviewRecord
	if err := sqlx.SelectContext(ctx, ext, &records, query, args...); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext(due review_records) > %w", err)
	}
	return records, nil
}

func countRecords(ctx context.Context, ext sqlx.ExtContext) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, ext, &count, "SELECT COUNT(*) FROM review_records"); err != nil {
		return 0, fmt.Errorf("sqlx.GetContext(count review_records) > %w", err)
	}
	return count, nil
}

func getStats(ctx context.Context, ext sqlx.ExtContext) (*Stats, error) {
	var stats Stats
	err := sqlx.GetContext(ctx, ext, &stats,
		"SELECT streak_days, last_study_date, daily_goal, reviews_today FROM study_stats WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return &Stats{DailyGoal: 20}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(study_stats) > %w", err)
	}
	return &stats, nil
}

func putStats(ctx context.Context, ext sqlx.ExtContext, stats *Stats) error {
	_, err := ext.ExecContext(ctx,
		`INSERT INTO study_stats (id, streak_days, last_study_date, daily_goal, reviews_today)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			streak_days = excluded.streak_days,
			last_study_date = excluded.last_study_date,
			daily_goal = excluded.daily_goal,
			reviews_today = excluded.reviews_today`,
		stats.StreakDays, stats.LastStudyDate, stats.DailyGoal, stats.ReviewsToday)
	if err != nil {
		return fmt.Errorf("ext.ExecContext(upsert study_stats) > %w", err)
	}
	return touch(ctx, ext)
}

// lastModified returns the time of the most recent mutation, or the zero time
// for a store that has never been written.
func lastModified(ctx context.Context, ext sqlx.ExtContext) (time.Time, error) {
	var value string
	err := sqlx.GetContext(ctx, ext, &value, "SELECT value FROM meta WHERE key = ?", metaLastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlx.GetContext(meta %s) > %w", metaLastModified, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("time.Parse(%s) > %w", value, err)
	}
	return ts, nil
}

func touch(ctx context.Context, ext sqlx.ExtContext) error {
	_, err := ext.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastModified, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ext.ExecContext(touch meta) > %w", err)
	}
	return nil
}
