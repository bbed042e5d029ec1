// Package testutil provides shared test helpers for creating config files,
// stores, and progress fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skondo/wordkeep/internal/config"
	"github.com/skondo/wordkeep/internal/database"
	"github.com/skondo/wordkeep/internal/progress"
)

// SetupTestConfig creates a minimal config file and the directories it points
// at. Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	backupDir := filepath.Join(tmpDir, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))

	configContent := fmt.Sprintf(`database:
  path: %s
backup:
  directory: %s
sync:
  slot: main
reports:
  directory: %s
`,
		filepath.Join(tmpDir, "wordkeep.db"),
		backupDir,
		filepath.Join(tmpDir, "reports"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0o644))
	return cfgPath
}

// NewTestStore opens a progress store backed by a throwaway SQLite file.
func NewTestStore(t *testing.T) *progress.DBStore {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := progress.NewDBStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

// ItemOption configures optional fields when seeding an item.
type ItemOption func(*progress.ReviewRecord)

// WithReviewState overrides the seeded record's scheduling state.
func WithReviewState(easeFactor float64, intervalDays, repetitions int) ItemOption {
	return func(r *progress.ReviewRecord) {
		r.EaseFactor = easeFactor
		r.IntervalDays = intervalDays
		r.Repetitions = repetitions
	}
}

// WithReviewCounts overrides the seeded record's review counters and sets the
// last-reviewed timestamp.
func WithReviewCounts(total, correct int, lastReviewedAt time.Time) ItemOption {
	return func(r *progress.ReviewRecord) {
		r.TotalReviews = total
		r.CorrectReviews = correct
		r.LastReviewedAt = &lastReviewedAt
	}
}

// SeedItem creates an item and its review record in the store.
func SeedItem(t *testing.T, store progress.Store, id, expression string, opts ...ItemOption) progress.ReviewRecord {
	t.Helper()

	ctx := context.Background()
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertItem(ctx, &progress.Item{
		ID:         id,
		Expression: expression,
		Meaning:    "meaning of " + expression,
		CreatedAt:  createdAt,
	}))

	record := progress.NewReviewRecord(id, createdAt)
	for _, opt := range opts {
		opt(&record)
	}
	require.NoError(t, store.UpsertRecord(ctx, &record))
	return record
}
