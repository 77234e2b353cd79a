package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/justapithecus/strata/types"
)

// Memory is an in-process event log. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []types.AssetRecord
}

// NewMemory returns an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append validates and stores a copy of record.
func (m *Memory) Append(_ context.Context, record *types.AssetRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	rec := *record
	rec.Tags = maps.Clone(record.Tags)

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

// Latest returns the last appended record matching kind, key and partition.
func (m *Memory) Latest(ctx context.Context, kind types.RecordKind, key types.AssetKey, partition string) (*types.AssetRecord, error) {
	return m.find(ctx, func(r *types.AssetRecord) bool {
		return r.Kind == kind && r.AssetKey == key && r.PartitionKey == partition
	})
}

// LatestAnyPartition returns the last appended record matching kind and key.
func (m *Memory) LatestAnyPartition(ctx context.Context, kind types.RecordKind, key types.AssetKey) (*types.AssetRecord, error) {
	return m.find(ctx, func(r *types.AssetRecord) bool {
		return r.Kind == kind && r.AssetKey == key
	})
}

func (m *Memory) find(ctx context.Context, match func(*types.AssetRecord) bool) (*types.AssetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if match(&m.records[i]) {
			rec := m.records[i]
			rec.Tags = maps.Clone(rec.Tags)
			return &rec, nil
		}
	}
	return nil, ErrNoRecord
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

var _ Log = (*Memory)(nil)
