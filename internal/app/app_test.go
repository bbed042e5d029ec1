package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skondo/wordkeep/internal/backup"
	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/scheduler"
	"github.com/skondo/wordkeep/internal/snapshot"
	"github.com/skondo/wordkeep/internal/testutil"
)

func newTestApp(t *testing.T, opts ...Option) (*App, progress.TxStore) {
	t.Helper()

	store := testutil.NewTestStore(t)
	engine := backup.New(store, snapshot.New(), filepath.Join(t.TempDir(), "backups"))
	return New(store, engine, opts...), store
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	a, store := newTestApp(t, WithNow(func() time.Time { return now }))

	item, err := a.AddItem(ctx, progress.Item{Expression: "Take Over", Meaning: "assume control"})
	require.NoError(t, err)
	assert.Equal(t, "take-over", item.ID)
	assert.Equal(t, now, item.CreatedAt)

	record, err := store.GetRecord(ctx, "take-over")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, progress.DefaultEaseFactor, record.EaseFactor)
	assert.True(t, record.Due(now))

	_, err = a.AddItem(ctx, progress.Item{Expression: ""})
	assert.Error(t, err)
}

func TestAddItemKeepsExistingRecord(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApp(t)

	testutil.SeedItem(t, store, "w1", "ephemeral",
		testutil.WithReviewState(2.6, 6, 2))

	_, err := a.AddItem(ctx, progress.Item{ID: "w1", Expression: "ephemeral", Meaning: "short-lived"})
	require.NoError(t, err)

	record, err := store.GetRecord(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Repetitions, "re-adding an item must not reset its schedule")

	item, err := store.GetItem(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "short-lived", item.Meaning)
}

func TestReviewItem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	a, store := newTestApp(t, WithNow(func() time.Time { return now }), WithDailyGoal(5))

	testutil.SeedItem(t, store, "w1", "ephemeral")

	record, err := a.ReviewItem(ctx, "w1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, record.Repetitions)
	assert.Equal(t, 1, record.IntervalDays)
	assert.Equal(t, now.AddDate(0, 0, 1), record.NextDueAt)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReviewsToday)
	assert.Equal(t, 1, stats.StreakDays)
	assert.Equal(t, 5, stats.DailyGoal)
}

func TestReviewItemErrors(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApp(t)
	testutil.SeedItem(t, store, "w1", "ephemeral")

	_, err := a.ReviewItem(ctx, "missing", 4)
	assert.ErrorIs(t, err, progress.ErrItemNotFound)

	_, err = a.ReviewItem(ctx, "w1", 6)
	var invalidQuality *scheduler.InvalidQualityError
	assert.ErrorAs(t, err, &invalidQuality)

	// A failed review must not touch the study counters.
	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ReviewsToday)
}

func TestReviewItemPublishesEvent(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApp(t)
	testutil.SeedItem(t, store, "w1", "ephemeral")

	events, cancel := a.Subscribe()
	defer cancel()

	_, err := a.ReviewItem(ctx, "w1", 4)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, EventReviewed, event.Kind)
		assert.Equal(t, "w1", event.ItemID)
	default:
		t.Fatal("expected a reviewed event")
	}
}

func TestDueItems(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	a, store := newTestApp(t, WithNow(func() time.Time { return now }))

	testutil.SeedItem(t, store, "w1", "ephemeral")
	testutil.SeedItem(t, store, "w2", "sonder",
		testutil.WithReviewState(2.5, 30, 6),
		testutil.WithReviewCounts(6, 6, now.AddDate(0, 0, -31)))

	due, err := a.DueItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, due, 2, "both records are due")

	due, err = a.DueItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.NotEmpty(t, due[0].Item.Expression)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApp(t)

	testutil.SeedItem(t, store, "w1", "ephemeral",
		testutil.WithReviewState(2.6, 6, 2))

	result, err := a.BackupNow(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemCount)
	assert.False(t, result.Encrypted)

	require.NoError(t, store.Wipe(ctx))

	restore, err := a.RestoreFromFile(ctx, result.Path, backup.KeepLocal)
	require.NoError(t, err)
	assert.Equal(t, 1, restore.Added)

	record, err := store.GetRecord(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 2, record.Repetitions)
}

func TestEncryptedBackup(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, WithPassphrase("long enough secret"))

	result, err := a.BackupNow(ctx, "", true)
	require.NoError(t, err)
	assert.True(t, result.Encrypted)
	assert.Equal(t, ".wkbk", filepath.Ext(result.Path))

	// A configured passphrase alone does not turn encryption on.
	plain, err := a.BackupNow(ctx, "", false)
	require.NoError(t, err)
	assert.False(t, plain.Encrypted)
}

func TestEncryptedBackupRequiresPassphrase(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := a.BackupNow(context.Background(), "", true)
	assert.ErrorIs(t, err, ErrNoPassphrase)
}

func TestMaintenanceGuard(t *testing.T) {
	ctx := context.Background()
	a, store := newTestApp(t)
	testutil.SeedItem(t, store, "w1", "ephemeral")

	a.maintenance.Store(true)
	defer a.maintenance.Store(false)

	_, err := a.ReviewItem(ctx, "w1", 4)
	assert.ErrorIs(t, err, ErrOperationInProgress)

	_, err = a.RestoreFromFile(ctx, "irrelevant.json", backup.KeepLocal)
	assert.ErrorIs(t, err, ErrOperationInProgress)
}

func TestSyncNotConfigured(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := a.SyncNow(context.Background())
	assert.ErrorIs(t, err, ErrSyncNotConfigured)
}
