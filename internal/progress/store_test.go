package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/testutil"
)

func TestDBStoreRecordRoundTrip(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	got, err := store.GetRecord(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	reviewedAt := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	record := progress.ReviewRecord{
		ItemID: "w1", EaseFactor: 2.36, IntervalDays: 14, Repetitions: 3,
		NextDueAt: reviewedAt.AddDate(0, 0, 14), LastReviewedAt: &reviewedAt,
		TotalReviews: 5, CorrectReviews: 4,
	}
	require.NoError(t, store.UpsertRecord(ctx, &record))

	got, err = store.GetRecord(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.EaseFactor, got.EaseFactor)
	assert.Equal(t, record.IntervalDays, got.IntervalDays)
	assert.Equal(t, record.Repetitions, got.Repetitions)
	assert.Equal(t, record.TotalReviews, got.TotalReviews)
	assert.Equal(t, record.CorrectReviews, got.CorrectReviews)
	assert.True(t, got.NextDueAt.Equal(record.NextDueAt))
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, got.LastReviewedAt.Equal(reviewedAt))

	// Upsert on an existing id updates in place.
	record.TotalReviews = 6
	require.NoError(t, store.UpsertRecord(ctx, &record))
	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDBStoreRejectsInvariantViolations(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record progress.ReviewRecord
	}{
		{
			name:   "ease factor below floor",
			record: progress.ReviewRecord{ItemID: "w1", EaseFactor: 1.2, NextDueAt: now},
		},
		{
			name:   "negative interval",
			record: progress.ReviewRecord{ItemID: "w1", EaseFactor: 2.5, IntervalDays: -1, NextDueAt: now},
		},
		{
			name: "correct exceeds total",
			record: progress.ReviewRecord{
				ItemID: "w1", EaseFactor: 2.5, NextDueAt: now,
				TotalReviews: 2, CorrectReviews: 3,
			},
		},
		{
			name:   "empty item id",
			record: progress.ReviewRecord{EaseFactor: 2.5, NextDueAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.UpsertRecord(ctx, &tt.record))
		})
	}

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDBStoreDueRecords(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	due := progress.NewReviewRecord("due", now.Add(-time.Hour))
	later := progress.NewReviewRecord("later", now.Add(time.Hour))
	require.NoError(t, store.UpsertRecord(ctx, &due))
	require.NoError(t, store.UpsertRecord(ctx, &later))

	got, err := store.DueRecords(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].ItemID)

	got, err = store.DueRecords(ctx, now.Add(2*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestDBStoreStats(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.DailyGoal)
	assert.Zero(t, stats.StreakDays)

	stats.StreakDays = 4
	stats.LastStudyDate = "2025-03-10"
	stats.ReviewsToday = 12
	require.NoError(t, store.PutStats(ctx, stats))

	got, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}

func TestDBStoreWithTxRollsBackOnError(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedItem(t, store, "w1", "eager")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx progress.Store) error {
		record := progress.NewReviewRecord("w2", time.Now())
		if err := tx.UpsertRecord(ctx, &record); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetRecord(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, got, "rolled-back record must not be visible")

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDBStoreWipe(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedItem(t, store, "w1", "eager")
	testutil.SeedItem(t, store, "w2", "keen")

	require.NoError(t, store.Wipe(ctx))

	count, err := store.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	items, err := store.AllItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDBStoreLastModified(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	ts, err := store.LastModified(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero(), "fresh store has no modification time")

	before := time.Now().Add(-time.Second)
	testutil.SeedItem(t, store, "w1", "eager")

	ts, err = store.LastModified(ctx)
	require.NoError(t, err)
	assert.True(t, ts.After(before))
}
