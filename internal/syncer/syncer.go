// Package syncer reconciles the local progress store with a remote snapshot
// slot. Conflicts between writers are resolved last-writer-wins by envelope
// timestamp, with a bounded number of whole-cycle retries.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"github.com/skondo/wordkeep/internal/backup"
	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/remote"
	"github.com/skondo/wordkeep/internal/snapshot"
)

const (
	defaultMaxAttempts = 3
	networkRetries     = 4
)

// Outcome reports which direction a successful sync moved data.
type Outcome string

const (
	// OutcomeUploaded means the local snapshot replaced the remote one.
	OutcomeUploaded Outcome = "uploaded-to-cloud"
	// OutcomeDownloaded means the remote snapshot was merged into the store.
	OutcomeDownloaded Outcome = "downloaded-from-cloud"
	// OutcomeAlreadySynced means both sides carried the same snapshot.
	OutcomeAlreadySynced Outcome = "already-synced"
)

// Candidate describes one side of a sync decision, for reporting.
type Candidate struct {
	CreatedAt time.Time
	ItemCount int
}

// ConflictUnresolvedError is returned when the retry budget is exhausted
// without committing either side. It carries both candidates' metadata so a
// caller can present a manual choice.
type ConflictUnresolvedError struct {
	Attempts int
	Local    Candidate
	Remote   Candidate
}

func (e *ConflictUnresolvedError) Error() string {
	return fmt.Sprintf("sync conflict unresolved after %d attempts (local %s/%d items, remote %s/%d items)",
		e.Attempts,
		e.Local.CreatedAt.Format(time.RFC3339), e.Local.ItemCount,
		e.Remote.CreatedAt.Format(time.RFC3339), e.Remote.ItemCount)
}

// Result describes a completed sync.
type Result struct {
	Outcome  Outcome
	Attempts int
	// Restore is set when the outcome is OutcomeDownloaded.
	Restore *backup.RestoreResult
	Local   Candidate
	Remote  Candidate
}

// Coordinator runs the sync protocol against one save slot.
type Coordinator struct {
	engine      *backup.Engine
	store       progress.TxStore
	remote      remote.Store
	codec       *snapshot.Codec
	slot        string
	passphrase  string
	maxAttempts int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPassphrase encrypts snapshots uploaded to the remote slot.
func WithPassphrase(passphrase string) Option {
	return func(c *Coordinator) {
		c.passphrase = passphrase
	}
}

// WithMaxAttempts overrides the conflict retry budget.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		c.maxAttempts = n
	}
}

// New creates a Coordinator for the given slot.
func New(engine *backup.Engine, store progress.TxStore, remoteStore remote.Store, codec *snapshot.Codec, slot string, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:      engine,
		store:       store,
		remote:      remoteStore,
		codec:       codec,
		slot:        slot,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sync runs one open/compare/commit cycle, retrying the whole cycle when the
// remote reports a write-write race, up to the attempt budget.
func (c *Coordinator) Sync(ctx context.Context) (*Result, error) {
	var local, remoteCand Candidate

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, retryable, err := c.attempt(ctx)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		var raceErr *slotRaceError
		if errors.As(err, &raceErr) {
			local = raceErr.local
			remoteCand = raceErr.remote
		}
		slog.Default().Warn("sync attempt lost a write race, retrying",
			"attempt", attempt,
			"slot", c.slot,
			"error", err)
	}

	return nil, &ConflictUnresolvedError{Attempts: c.maxAttempts, Local: local, Remote: remoteCand}
}

// slotRaceError marks an attempt that lost a write-write race and should be
// retried from the top.
type slotRaceError struct {
	cause  error
	local  Candidate
	remote Candidate
}

func (e *slotRaceError) Error() string {
	return fmt.Sprintf("slot write race: %v", e.cause)
}

func (e *slotRaceError) Unwrap() error {
	return e.cause
}

func (c *Coordinator) attempt(ctx context.Context) (*Result, bool, error) {
	handle, err := c.openSlot(ctx)
	if err != nil {
		return nil, false, err
	}

	var remoteData []byte
	if err := c.withRetry(ctx, func() error {
		var readErr error
		remoteData, readErr = c.remote.ReadBytes(ctx, handle)
		return readErr
	}); err != nil {
		return nil, false, fmt.Errorf("remote.ReadBytes(%s) > %w", c.slot, err)
	}

	payload, err := c.engine.Snapshot(ctx, true)
	if err != nil {
		return nil, false, fmt.Errorf("engine.Snapshot() > %w", err)
	}
	localCreatedAt, err := c.localCreatedAt(ctx)
	if err != nil {
		return nil, false, err
	}
	local := Candidate{CreatedAt: localCreatedAt, ItemCount: len(payload.Records)}

	remoteInfo, remoteOK := c.inspectRemote(remoteData)
	if !remoteOK {
		// No remote snapshot, or one we must treat as absent: upload.
		return c.upload(ctx, handle, payload, local, Candidate{})
	}
	remoteCand := Candidate{CreatedAt: remoteInfo.CreatedAt}

	switch {
	case remoteInfo.CreatedAt.After(localCreatedAt):
		result, retryable, err := c.download(ctx, remoteData, remoteCand, local)
		if errors.Is(err, snapshot.ErrAuthenticationFailed) || errors.Is(err, snapshot.ErrPassphraseRequired) {
			// The slot holds a snapshot we cannot decrypt with the configured
			// passphrase. It is unusable on this device, so it ranks as absent.
			slog.Default().Warn("remote snapshot not decryptable, treating as absent",
				"slot", c.slot,
				"error", err)
			return c.upload(ctx, handle, payload, local, Candidate{})
		}
		return result, retryable, err
	case localCreatedAt.After(remoteInfo.CreatedAt):
		return c.upload(ctx, handle, payload, local, remoteCand)
	default:
		return &Result{Outcome: OutcomeAlreadySynced, Local: local, Remote: remoteCand}, false, nil
	}
}

func (c *Coordinator) openSlot(ctx context.Context) (*remote.Handle, error) {
	var handle *remote.Handle
	err := c.withRetry(ctx, func() error {
		var openErr error
		handle, openErr = c.remote.Open(ctx, c.slot, true)
		return openErr
	})
	if err == nil {
		return handle, nil
	}

	var conflict *remote.ConflictError
	if !errors.As(err, &conflict) {
		return nil, fmt.Errorf("remote.Open(%s) > %w", c.slot, err)
	}
	return c.resolveSlotConflict(ctx, conflict)
}

// resolveSlotConflict settles a pending remote conflict by keeping whichever
// competing version carries the later snapshot timestamp.
func (c *Coordinator) resolveSlotConflict(ctx context.Context, conflict *remote.ConflictError) (*remote.Handle, error) {
	baseAt := c.versionCreatedAt(ctx, &conflict.Base)
	competingAt := c.versionCreatedAt(ctx, &conflict.Competing)

	chosen := &conflict.Base
	if competingAt.After(baseAt) {
		chosen = &conflict.Competing
	}
	slog.Default().Info("resolving remote snapshot conflict",
		"slot", c.slot,
		"conflict", conflict.ConflictID,
		"chosen", chosen.Version)

	var handle *remote.Handle
	err := c.withRetry(ctx, func() error {
		var resolveErr error
		handle, resolveErr = c.remote.ResolveConflict(ctx, conflict.ConflictID, chosen)
		return resolveErr
	})
	if err != nil {
		return nil, fmt.Errorf("remote.ResolveConflict(%s) > %w", conflict.ConflictID, err)
	}
	return handle, nil
}

// versionCreatedAt reads a competing version's envelope timestamp. A version
// that cannot be read or parsed ranks as the zero time, so the readable side
// wins.
func (c *Coordinator) versionCreatedAt(ctx context.Context, h *remote.Handle) time.Time {
	var data []byte
	if err := c.withRetry(ctx, func() error {
		var readErr error
		data, readErr = c.remote.ReadBytes(ctx, h)
		return readErr
	}); err != nil {
		return time.Time{}
	}
	info, err := c.codec.Inspect(data)
	if err != nil {
		return time.Time{}
	}
	return info.CreatedAt
}

// localCreatedAt stamps the local snapshot with the store's last mutation
// time, so a device that has not studied since its last upload compares equal
// to its own remote copy. A never-written store ranks as the zero time and
// loses to any remote snapshot.
func (c *Coordinator) localCreatedAt(ctx context.Context) (time.Time, error) {
	lastModified, err := c.store.LastModified(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("store.LastModified() > %w", err)
	}
	if lastModified.IsZero() {
		return time.Time{}, nil
	}
	return lastModified.UTC().Truncate(time.Millisecond), nil
}

func (c *Coordinator) inspectRemote(data []byte) (snapshot.Info, bool) {
	if len(data) == 0 {
		return snapshot.Info{}, false
	}
	info, err := c.codec.Inspect(data)
	if err != nil {
		slog.Default().Warn("remote snapshot unreadable, treating as absent", "error", err)
		return snapshot.Info{}, false
	}
	return info, true
}

func (c *Coordinator) upload(ctx context.Context, handle *remote.Handle, payload snapshot.Payload, local, remoteCand Candidate) (*Result, bool, error) {
	data, err := c.codec.Encode(payload, snapshot.EncodeOptions{
		Encrypt:    c.passphrase != "",
		Passphrase: c.passphrase,
		CreatedAt:  local.CreatedAt,
	})
	if err != nil {
		return nil, false, fmt.Errorf("codec.Encode() > %w", err)
	}

	err = c.withRetry(ctx, func() error {
		_, writeErr := c.remote.WriteBytes(ctx, handle, data)
		return writeErr
	})
	if err == nil {
		return &Result{Outcome: OutcomeUploaded, Local: local, Remote: remoteCand}, false, nil
	}

	var conflict *remote.ConflictError
	if errors.As(err, &conflict) {
		// Another device committed while we were deciding: rerun the cycle.
		return nil, true, &slotRaceError{cause: err, local: local, remote: remoteCand}
	}
	return nil, false, fmt.Errorf("remote.WriteBytes(%s) > %w", c.slot, err)
}

func (c *Coordinator) download(ctx context.Context, remoteData []byte, remoteCand, local Candidate) (*Result, bool, error) {
	payload, info, err := c.codec.Decode(remoteData, c.passphrase)
	if err != nil {
		return nil, false, fmt.Errorf("codec.Decode(remote snapshot) > %w", err)
	}
	remoteCand.ItemCount = len(payload.Records)

	restore, err := c.engine.Merge(ctx, payload, info.CreatedAt, backup.MergePreferRemote)
	if err != nil {
		return nil, false, fmt.Errorf("engine.Merge() > %w", err)
	}
	return &Result{
		Outcome: OutcomeDownloaded,
		Restore: restore,
		Local:   local,
		Remote:  remoteCand,
	}, false, nil
}

// withRetry retries fn with exponential backoff on transient failures.
// Authentication, quota, and conflict responses are terminal and returned
// unchanged.
func (c *Coordinator) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = fn()
			if lastErr == nil {
				return nil
			}
			if !isTransient(lastErr) {
				return retry.Unrecoverable(lastErr)
			}
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(networkRetries),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}

func isTransient(err error) bool {
	var conflict *remote.ConflictError
	switch {
	case errors.Is(err, remote.ErrNotAuthenticated),
		errors.Is(err, remote.ErrQuotaExceeded),
		errors.As(err, &conflict):
		return false
	}
	return true
}
