package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*DBStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS items").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewDBStore(context.Background(), sqlx.NewDb(db, "sqlite3"))
	require.NoError(t, err)
	return store, mock
}

func TestDBStoreSurfacesQueryErrors(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(store *DBStore) error
	}{
		{
			name: "GetRecord",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM review_records WHERE item_id").
					WillReturnError(fmt.Errorf("disk I/O error"))
			},
			call: func(store *DBStore) error {
				_, err := store.GetRecord(context.Background(), "w1")
				return err
			},
		},
		{
			name: "AllRecords",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM review_records ORDER BY item_id").
					WillReturnError(fmt.Errorf("database is locked"))
			},
			call: func(store *DBStore) error {
				_, err := store.AllRecords(context.Background())
				return err
			},
		},
		{
			name: "UpsertRecord",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO review_records").
					WillReturnError(fmt.Errorf("disk I/O error"))
			},
			call: func(store *DBStore) error {
				record := NewReviewRecord("w1", now)
				return store.UpsertRecord(context.Background(), &record)
			},
		},
		{
			name: "GetStats",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT streak_days, last_study_date").
					WillReturnError(fmt.Errorf("disk I/O error"))
			},
			call: func(store *DBStore) error {
				_, err := store.GetStats(context.Background())
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setupMock(mock)

			err := tt.call(store)
			assert.Error(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
