// Package store defines the append-only asset event log and an in-memory
// implementation.
//
// The log is latest-wins: a lookup returns the most recently appended record
// for an (asset, partition) pair. Records are never updated or deleted.
package store

import (
	"context"
	"errors"

	"github.com/justapithecus/strata/types"
)

// ErrNoRecord is returned when no record of the requested kind exists.
var ErrNoRecord = errors.New("no record")

// Reader looks up the most recent records.
type Reader interface {
	// Latest returns the most recent record of kind for the asset partition.
	// Pass "" for unpartitioned assets.
	Latest(ctx context.Context, kind types.RecordKind, key types.AssetKey, partition string) (*types.AssetRecord, error)
	// LatestAnyPartition returns the most recent record of kind for the asset,
	// regardless of partition.
	LatestAnyPartition(ctx context.Context, kind types.RecordKind, key types.AssetKey) (*types.AssetRecord, error)
}

// Writer appends records.
type Writer interface {
	Append(ctx context.Context, record *types.AssetRecord) error
}

// Log is a readable, appendable event log.
type Log interface {
	Reader
	Writer
	Close() error
}
