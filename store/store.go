// Package store defines the persistence contract for the IOU journal.
package store

import (
	"context"

	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
)

// Store is the unified storage interface backends implement.
//
// AppendEntry must fail with an error matching iou.ErrAlreadyExists when the
// (contract, seq) slot is already taken. The engine relies on this to detect
// a concurrent writer to the same contract.
type Store interface {
	// Journal methods
	AppendEntry(ctx context.Context, e *journal.Entry) error
	ListEntries(ctx context.Context, contractID id.ContractID, afterSeq int64) ([]*journal.Entry, error)
	ListIssuances(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error)

	// Checkpoint methods
	SaveCheckpoint(ctx context.Context, cp *journal.Checkpoint) error
	GetCheckpoint(ctx context.Context, contractID id.ContractID) (*journal.Checkpoint, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
