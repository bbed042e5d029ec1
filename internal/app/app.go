// Package app wires the persistence core behind a single facade with the
// concurrency rules the command layer relies on.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skondo/wordkeep/internal/backup"
	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/report"
	"github.com/skondo/wordkeep/internal/scheduler"
	"github.com/skondo/wordkeep/internal/snapshot"
	"github.com/skondo/wordkeep/internal/statistics"
	"github.com/skondo/wordkeep/internal/syncer"
)

var (
	// ErrOperationInProgress is returned when a restore or sync is requested
	// while another one is still running.
	ErrOperationInProgress = errors.New("another maintenance operation is in progress")
	// ErrSyncNotConfigured is returned by SyncNow when no sync endpoint is set.
	ErrSyncNotConfigured = errors.New("sync is not configured")
	// ErrNoPassphrase is returned when an encrypted backup is requested but no
	// passphrase is configured.
	ErrNoPassphrase = errors.New("encryption requires a configured passphrase")
)

type EventKind string

const (
	EventReviewed EventKind = "reviewed"
	EventBackedUp EventKind = "backed_up"
	EventRestored EventKind = "restored"
	EventSynced   EventKind = "synced"
)

// Event notifies subscribers that the store changed.
type Event struct {
	Kind   EventKind
	ItemID string
	At     time.Time
}

// DueItem pairs an item with its review state.
type DueItem struct {
	Item   progress.Item
	Record progress.ReviewRecord
}

type App struct {
	store       progress.TxStore
	engine      *backup.Engine
	coordinator *syncer.Coordinator
	reports     *report.Generator
	passphrase  string
	dailyGoal   int
	now         func() time.Time

	// maintenance serializes restore and sync against each other and against
	// reviews. exporting serializes concurrent exports only; exports read a
	// transactional snapshot and never block reviews.
	maintenance atomic.Bool
	exporting   atomic.Bool

	mu          sync.Mutex
	subscribers []chan Event
}

type Option func(*App)

func WithSync(coordinator *syncer.Coordinator) Option {
	return func(a *App) {
		a.coordinator = coordinator
	}
}

func WithReports(generator *report.Generator) Option {
	return func(a *App) {
		a.reports = generator
	}
}

// WithPassphrase encrypts exported backups with the given passphrase.
func WithPassphrase(passphrase string) Option {
	return func(a *App) {
		a.passphrase = passphrase
	}
}

func WithDailyGoal(goal int) Option {
	return func(a *App) {
		a.dailyGoal = goal
	}
}

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

func New(store progress.TxStore, engine *backup.Engine, opts ...Option) *App {
	a := &App{
		store:  store,
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddItem registers a new vocabulary item with a fresh review record that is
// due immediately. A missing ID is derived from the expression.
func (a *App) AddItem(ctx context.Context, item progress.Item) (*progress.Item, error) {
	if strings.TrimSpace(item.Expression) == "" {
		return nil, errors.New("expression must not be empty")
	}
	if item.ID == "" {
		item.ID = slugify(item.Expression)
	}
	now := a.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}

	err := a.store.WithTx(ctx, func(tx progress.Store) error {
		if err := tx.UpsertItem(ctx, &item); err != nil {
			return fmt.Errorf("tx.UpsertItem(%s) > %w", item.ID, err)
		}
		existing, err := tx.GetRecord(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("tx.GetRecord(%s) > %w", item.ID, err)
		}
		if existing != nil {
			return nil
		}
		record := progress.NewReviewRecord(item.ID, now)
		if err := tx.UpsertRecord(ctx, &record); err != nil {
			return fmt.Errorf("tx.UpsertRecord(%s) > %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns every item with its review state, ordered by ID.
func (a *App) ListItems(ctx context.Context) ([]DueItem, error) {
	var entries []DueItem
	err := a.store.WithTx(ctx, func(tx progress.Store) error {
		items, err := tx.AllItems(ctx)
		if err != nil {
			return fmt.Errorf("tx.AllItems() > %w", err)
		}
		records, err := tx.AllRecords(ctx)
		if err != nil {
			return fmt.Errorf("tx.AllRecords() > %w", err)
		}

		recordsByID := make(map[string]progress.ReviewRecord, len(records))
		for _, record := range records {
			recordsByID[record.ItemID] = record
		}
		for _, item := range items {
			entries = append(entries, DueItem{Item: item, Record: recordsByID[item.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DueItems returns the items due for review, soonest first. limit <= 0 means
// no limit.
func (a *App) DueItems(ctx context.Context, limit int) ([]DueItem, error) {
	records, err := a.store.DueRecords(ctx, a.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("store.DueRecords() > %w", err)
	}

	due := make([]DueItem, 0, len(records))
	for _, record := range records {
		item, err := a.store.GetItem(ctx, record.ItemID)
		if err != nil {
			return nil, fmt.Errorf("store.GetItem(%s) > %w", record.ItemID, err)
		}
		entry := DueItem{Record: record}
		if item != nil {
			entry.Item = *item
		} else {
			entry.Item = progress.Item{ID: record.ItemID, Expression: record.ItemID}
		}
		due = append(due, entry)
	}
	return due, nil
}

// ReviewItem grades one recall attempt and advances the item's schedule. The
// record update and the study counters commit in the same transaction.
func (a *App) ReviewItem(ctx context.Context, itemID string, quality int) (*progress.ReviewRecord, error) {
	if a.maintenance.Load() {
		return nil, ErrOperationInProgress
	}
	now := a.now()

	var advanced progress.ReviewRecord
	err := a.store.WithTx(ctx, func(tx progress.Store) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("tx.GetItem(%s) > %w", itemID, err)
		}
		if item == nil {
			return fmt.Errorf("%s: %w", itemID, progress.ErrItemNotFound)
		}

		record, err := tx.GetRecord(ctx, itemID)
		if err != nil {
			return fmt.Errorf("tx.GetRecord(%s) > %w", itemID, err)
		}
		if record == nil {
			fresh := progress.NewReviewRecord(itemID, now)
			record = &fresh
		}

		advanced, err = scheduler.Advance(*record, quality, now)
		if err != nil {
			return fmt.Errorf("scheduler.Advance(%s) > %w", itemID, err)
		}
		if err := tx.UpsertRecord(ctx, &advanced); err != nil {
			return fmt.Errorf("tx.UpsertRecord(%s) > %w", itemID, err)
		}

		stats, err := tx.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("tx.GetStats() > %w", err)
		}
		if a.dailyGoal > 0 {
			stats.DailyGoal = a.dailyGoal
		}
		stats.RecordStudy(now)
		if err := tx.PutStats(ctx, stats); err != nil {
			return fmt.Errorf("tx.PutStats() > %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.publish(Event{Kind: EventReviewed, ItemID: itemID, At: now})
	return &advanced, nil
}

// BackupNow exports a snapshot into the backup directory. path overrides the
// generated file name when non-empty. Encryption is opt-in and requires a
// configured passphrase.
func (a *App) BackupNow(ctx context.Context, path string, encrypt bool) (*backup.BackupResult, error) {
	if encrypt && a.passphrase == "" {
		return nil, ErrNoPassphrase
	}
	if !a.exporting.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer a.exporting.Store(false)

	result, err := a.engine.Export(ctx, backup.ExportOptions{
		IncludeStats: true,
		Encrypt:      encrypt,
		Passphrase:   a.passphrase,
		Path:         path,
	})
	if err != nil {
		return nil, err
	}
	a.publish(Event{Kind: EventBackedUp, At: a.now()})
	return result, nil
}

// RestoreFromFile imports a snapshot file with the given merge strategy.
func (a *App) RestoreFromFile(ctx context.Context, path string, strategy backup.Strategy) (*backup.RestoreResult, error) {
	if !a.maintenance.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer a.maintenance.Store(false)

	result, err := a.engine.ImportFile(ctx, path, strategy, a.passphrase)
	if err != nil {
		return nil, err
	}
	if len(result.Conflicts) > 0 {
		slog.Default().Warn("restore aborted on unresolved conflicts",
			"path", path,
			"conflicts", len(result.Conflicts))
		return result, nil
	}
	a.publish(Event{Kind: EventRestored, At: a.now()})
	return result, nil
}

// SyncNow runs one synchronization cycle against the configured remote slot.
func (a *App) SyncNow(ctx context.Context) (*syncer.Result, error) {
	if a.coordinator == nil {
		return nil, ErrSyncNotConfigured
	}
	if !a.maintenance.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer a.maintenance.Store(false)

	result, err := a.coordinator.Sync(ctx)
	if err != nil {
		return nil, err
	}
	a.publish(Event{Kind: EventSynced, At: a.now()})
	return result, nil
}

// SnapshotPayload materializes a consistent copy of the store, for exports in
// formats other than the snapshot envelope.
func (a *App) SnapshotPayload(ctx context.Context, includeStats bool) (snapshot.Payload, error) {
	return a.engine.Snapshot(ctx, includeStats)
}

// Summary computes aggregate study statistics as of now.
func (a *App) Summary(ctx context.Context) (statistics.Summary, error) {
	records, err := a.store.AllRecords(ctx)
	if err != nil {
		return statistics.Summary{}, fmt.Errorf("store.AllRecords() > %w", err)
	}
	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return statistics.Summary{}, fmt.Errorf("store.GetStats() > %w", err)
	}
	return statistics.Summarize(records, *stats, a.now()), nil
}

// WriteReport renders a study report and returns the file path.
func (a *App) WriteReport(ctx context.Context, pdf bool) (string, error) {
	if a.reports == nil {
		return "", errors.New("reports are not configured")
	}
	if pdf {
		return a.reports.WritePDF(ctx)
	}
	return a.reports.WriteMarkdown(ctx)
}

// Subscribe registers a listener for store change events. The returned
// function removes the subscription. Slow listeners drop events rather than
// block writers.
func (a *App) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	a.mu.Lock()
	a.subscribers = append(a.subscribers, ch)
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, sub := range a.subscribers {
			if sub == ch {
				a.subscribers = append(a.subscribers[:i], a.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (a *App) publish(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ch := range a.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func slugify(expression string) string {
	slug := strings.ToLower(strings.TrimSpace(expression))
	return strings.Join(strings.Fields(slug), "-")
}
