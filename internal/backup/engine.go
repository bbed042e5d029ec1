// Package backup orchestrates the snapshot codec and the progress store to
// produce backup files and to restore them under an explicit conflict policy.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/snapshot"
)

// Strategy decides which side wins when a restore finds colliding records.
type Strategy string

const (
	// KeepLocal keeps the local record on every collision; only new ids are added.
	KeepLocal Strategy = "keep-local"
	// MergePreferRemote keeps whichever record was reviewed later, preferring
	// the incoming one on equal timestamps with more total reviews.
	MergePreferRemote Strategy = "merge-prefer-remote"
)

// ParseStrategy converts a user-supplied strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case KeepLocal, MergePreferRemote:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q (want %q or %q)", name, KeepLocal, MergePreferRemote)
}

const (
	plainExt     = ".json"
	encryptedExt = ".wkbk"
)

// BackupResult describes a completed export.
type BackupResult struct {
	Path      string
	SizeBytes int64
	ItemCount int
	Encrypted bool
	CreatedAt time.Time
}

// RecordConflict is a collision the strategy could not order: both sides were
// reviewed at the same time with the same review count but differ in content.
type RecordConflict struct {
	ItemID   string
	Local    progress.ReviewRecord
	Incoming progress.ReviewRecord
}

// ConflictDecision summarizes how a merge was resolved.
type ConflictDecision struct {
	WinningCreatedAt time.Time
	DiscardedRecords int
	Strategy         Strategy
}

// RestoreResult describes a completed or refused import. When Conflicts is
// non-empty nothing was committed; the caller must pick a resolution.
type RestoreResult struct {
	Added            int
	Updated          int
	SkippedLocalWins int
	Conflicts        []RecordConflict
	Decision         ConflictDecision
}

// Engine coordinates exports and imports against a single progress store.
type Engine struct {
	store progress.TxStore
	codec *snapshot.Codec
	dir   string
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow overrides the clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine that writes backup files under dir.
func New(store progress.TxStore, codec *snapshot.Codec, dir string, opts ...Option) *Engine {
	e := &Engine{store: store, codec: codec, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportOptions controls what an export contains and how it is written.
type ExportOptions struct {
	// IncludeStats copies the streak and goal counters into the snapshot.
	IncludeStats bool
	// Encrypt protects the backup with the passphrase.
	Encrypt    bool
	Passphrase string
	// Path overrides the generated file name.
	Path string
}

// Snapshot materializes a consistent copy of the store into a payload.
// Records and items are copied, never referenced.
func (e *Engine) Snapshot(ctx context.Context, includeStats bool) (snapshot.Payload, error) {
	var payload snapshot.Payload
	err := e.store.WithTx(ctx, func(tx progress.Store) error {
		items, err := tx.AllItems(ctx)
		if err != nil {
			return fmt.Errorf("tx.AllItems() > %w", err)
		}
		records, err := tx.AllRecords(ctx)
		if err != nil {
			return fmt.Errorf("tx.AllRecords() > %w", err)
		}
		payload.Items = items
		payload.Records = records
		if includeStats {
			stats, err := tx.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("tx.GetStats() > %w", err)
			}
			payload.Stats = stats
		}
		return nil
	})
	if err != nil {
		return snapshot.Payload{}, err
	}
	return payload, nil
}

// Export writes a backup file. The file becomes visible to readers only after
// it is fully written: the envelope goes to a temporary file first and is
// renamed into place.
func (e *Engine) Export(ctx context.Context, opts ExportOptions) (*BackupResult, error) {
	payload, err := e.Snapshot(ctx, opts.IncludeStats)
	if err != nil {
		return nil, fmt.Errorf("engine.Snapshot() > %w", err)
	}

	createdAt := e.now().UTC()
	data, err := e.codec.Encode(payload, snapshot.EncodeOptions{
		Encrypt:    opts.Encrypt,
		Passphrase: opts.Passphrase,
		CreatedAt:  createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("codec.Encode() > %w", err)
	}

	path := opts.Path
	if path == "" {
		ext := plainExt
		if opts.Encrypt {
			ext = encryptedExt
		}
		path = filepath.Join(e.dir, "backup-"+createdAt.Format("20060102-150405")+ext)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}

	slog.Default().Info("backup written",
		"path", path,
		"records", len(payload.Records),
		"encrypted", opts.Encrypt)

	return &BackupResult{
		Path:      path,
		SizeBytes: int64(len(data)),
		ItemCount: len(payload.Records),
		Encrypted: opts.Encrypt,
		CreatedAt: createdAt,
	}, nil
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so a crash or cancellation never leaves a partial
// backup visible.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("os.CreateTemp(%s) > %w", dir, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.Write(%s) > %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close(%s) > %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("os.Rename(%s, %s) > %w", tmp.Name(), path, err)
	}
	return nil
}

// ImportFile decodes the backup at path and merges it into the store.
func (e *Engine) ImportFile(ctx context.Context, path string, strategy Strategy, passphrase string) (*RestoreResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}
	return e.Import(ctx, data, strategy, passphrase)
}

// Import decodes a backup and merges it into the store under the strategy.
// A codec failure returns before the store is touched; the merge itself is a
// single transaction, so either every winning record is committed or none are.
func (e *Engine) Import(ctx context.Context, data []byte, strategy Strategy, passphrase string) (*RestoreResult, error) {
	payload, info, err := e.codec.Decode(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("codec.Decode() > %w", err)
	}
	return e.Merge(ctx, payload, info.CreatedAt, strategy)
}

// errConflictsFound aborts the merge transaction when unresolvable collisions
// were collected.
var errConflictsFound = errors.New("merge found unresolvable conflicts")

// Merge applies a decoded payload to the store under the strategy. Exposed so
// the sync coordinator can commit a downloaded snapshot through the same path.
func (e *Engine) Merge(ctx context.Context, payload snapshot.Payload, createdAt time.Time, strategy Strategy) (*RestoreResult, error) {
	result := &RestoreResult{
		Decision: ConflictDecision{WinningCreatedAt: createdAt, Strategy: strategy},
	}

	incomingItems := make(map[string]progress.Item, len(payload.Items))
	for _, item := range payload.Items {
		incomingItems[item.ID] = item
	}

	err := e.store.WithTx(ctx, func(tx progress.Store) error {
		for _, incoming := range payload.Records {
			local, err := tx.GetRecord(ctx, incoming.ItemID)
			if err != nil {
				return fmt.Errorf("tx.GetRecord(%s) > %w", incoming.ItemID, err)
			}

			if local == nil {
				if err := e.applyRecord(ctx, tx, incoming, incomingItems); err != nil {
					return err
				}
				result.Added++
				continue
			}

			switch strategy {
			case KeepLocal:
				result.SkippedLocalWins++
				result.Decision.DiscardedRecords++
			case MergePreferRemote:
				winner, unresolved := pickWinner(*local, incoming)
				if unresolved {
					result.Conflicts = append(result.Conflicts, RecordConflict{
						ItemID: incoming.ItemID, Local: *local, Incoming: incoming,
					})
					continue
				}
				if winner == remoteWins {
					if err := e.applyRecord(ctx, tx, incoming, incomingItems); err != nil {
						return err
					}
					result.Updated++
					result.Decision.DiscardedRecords++
				} else {
					result.SkippedLocalWins++
				}
			default:
				return fmt.Errorf("unknown conflict strategy %q", strategy)
			}
		}

		// Items without records are still carried into the union.
		for id, item := range incomingItems {
			existing, err := tx.GetItem(ctx, id)
			if err != nil {
				return fmt.Errorf("tx.GetItem(%s) > %w", id, err)
			}
			if existing == nil {
				if err := tx.UpsertItem(ctx, &item); err != nil {
					return fmt.Errorf("tx.UpsertItem(%s) > %w", id, err)
				}
			}
		}

		if payload.Stats != nil && strategy == MergePreferRemote {
			if err := mergeStats(ctx, tx, payload.Stats); err != nil {
				return err
			}
		}

		if len(result.Conflicts) > 0 {
			return errConflictsFound
		}
		return nil
	})
	if errors.Is(err, errConflictsFound) {
		// Nothing was committed; hand the collisions to the caller.
		result.Added, result.Updated, result.SkippedLocalWins = 0, 0, 0
		result.Decision.DiscardedRecords = 0
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) applyRecord(ctx context.Context, tx progress.Store, record progress.ReviewRecord, items map[string]progress.Item) error {
	if item, ok := items[record.ItemID]; ok {
		if err := tx.UpsertItem(ctx, &item); err != nil {
			return fmt.Errorf("tx.UpsertItem(%s) > %w", item.ID, err)
		}
	}
	if err := tx.UpsertRecord(ctx, &record); err != nil {
		return fmt.Errorf("tx.UpsertRecord(%s) > %w", record.ItemID, err)
	}
	return nil
}

type winner int

const (
	localWins winner = iota
	remoteWins
)

// pickWinner orders two colliding records: later last-reviewed time wins,
// ties broken by higher total reviews, remaining ties by content equality.
// Two equally-ranked records with different content cannot be ordered.
func pickWinner(local, incoming progress.ReviewRecord) (winner, bool) {
	localAt := reviewTime(local)
	incomingAt := reviewTime(incoming)

	switch {
	case incomingAt.After(localAt):
		return remoteWins, false
	case localAt.After(incomingAt):
		return localWins, false
	case incoming.TotalReviews > local.TotalReviews:
		return remoteWins, false
	case local.TotalReviews > incoming.TotalReviews:
		return localWins, false
	case recordsEqual(local, incoming):
		return localWins, false
	}
	return localWins, true
}

func reviewTime(record progress.ReviewRecord) time.Time {
	if record.LastReviewedAt == nil {
		return time.Time{}
	}
	return *record.LastReviewedAt
}

func recordsEqual(a, b progress.ReviewRecord) bool {
	return a.EaseFactor == b.EaseFactor &&
		a.IntervalDays == b.IntervalDays &&
		a.Repetitions == b.Repetitions &&
		a.NextDueAt.Equal(b.NextDueAt) &&
		a.CorrectReviews == b.CorrectReviews
}

// mergeStats keeps whichever counters belong to the most recent study day.
func mergeStats(ctx context.Context, tx progress.Store, incoming *progress.Stats) error {
	local, err := tx.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("tx.GetStats() > %w", err)
	}
	if incoming.LastStudyDate > local.LastStudyDate {
		if err := tx.PutStats(ctx, incoming); err != nil {
			return fmt.Errorf("tx.PutStats() > %w", err)
		}
	}
	return nil
}
