// Package remote defines the blob-store capability surface the sync
// coordinator depends on, and an HTTP implementation of it. Snapshots are
// stored in named save slots; concurrent writers surface as conflicts that
// must be resolved explicitly.
package remote

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=remote.go -destination=../mocks/remote/mock_store.go -package=mock_remote Store

var (
	// ErrNotAuthenticated means no valid session is present. Terminal: the
	// caller must not retry.
	ErrNotAuthenticated = errors.New("not authenticated with remote store")
	// ErrSlotNotFound means the slot does not exist and creation was not requested.
	ErrSlotNotFound = errors.New("save slot not found")
	// ErrQuotaExceeded means the remote refused the write for capacity reasons.
	// Terminal: retrying cannot succeed.
	ErrQuotaExceeded = errors.New("remote storage quota exceeded")
)

// Handle identifies one committed version of a save slot.
type Handle struct {
	Slot    string `json:"slot"`
	Version string `json:"version"`
}

// ConflictError reports a write-write race on a slot. It carries both
// competing versions so the caller can inspect them and resolve.
type ConflictError struct {
	ConflictID string
	Base       Handle
	Competing  Handle
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s conflict %s: version %s competes with %s",
		e.Base.Slot, e.ConflictID, e.Base.Version, e.Competing.Version)
}

// Store is the remote blob-store capability the sync coordinator consumes.
// Implementations map these operations onto a specific backing service.
type Store interface {
	// Open returns the current handle for the slot. A pending conflict is
	// returned as a *ConflictError.
	Open(ctx context.Context, slot string, createIfMissing bool) (*Handle, error)
	// ReadBytes returns the snapshot bytes committed under the handle's
	// version. An empty, never-written slot yields an empty slice.
	ReadBytes(ctx context.Context, h *Handle) ([]byte, error)
	// WriteBytes commits data as the slot's next version. A concurrent commit
	// since the handle was opened is returned as a *ConflictError.
	WriteBytes(ctx context.Context, h *Handle, data []byte) (*Handle, error)
	// ResolveConflict settles a conflict in favor of the chosen handle and
	// returns the slot's new head.
	ResolveConflict(ctx context.Context, conflictID string, chosen *Handle) (*Handle, error)
}
