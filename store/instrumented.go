package store

import (
	"context"
	"errors"

	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// InstrumentedLog wraps a Log and records read and write counters.
// A lookup that finds nothing counts as a read, not a failure.
type InstrumentedLog struct {
	inner     Log
	collector *metrics.Collector
}

// NewInstrumentedLog wraps a log with metrics instrumentation.
func NewInstrumentedLog(inner Log, collector *metrics.Collector) *InstrumentedLog {
	return &InstrumentedLog{inner: inner, collector: collector}
}

// Append delegates to the inner log and records success or failure.
func (l *InstrumentedLog) Append(ctx context.Context, record *types.AssetRecord) error {
	err := l.inner.Append(ctx, record)
	if err != nil {
		l.collector.IncRecordWriteFailure()
	} else {
		l.collector.IncRecordWriteSuccess()
	}
	return err
}

// Latest delegates to the inner log and records the read.
func (l *InstrumentedLog) Latest(ctx context.Context, kind types.RecordKind, key types.AssetKey, partition string) (*types.AssetRecord, error) {
	rec, err := l.inner.Latest(ctx, kind, key, partition)
	l.observeRead(err)
	return rec, err
}

// LatestAnyPartition delegates to the inner log and records the read.
func (l *InstrumentedLog) LatestAnyPartition(ctx context.Context, kind types.RecordKind, key types.AssetKey) (*types.AssetRecord, error) {
	rec, err := l.inner.LatestAnyPartition(ctx, kind, key)
	l.observeRead(err)
	return rec, err
}

func (l *InstrumentedLog) observeRead(err error) {
	l.collector.IncLogRead()
	if err != nil && !errors.Is(err, ErrNoRecord) {
		l.collector.IncLogReadFailure()
	}
}

// Close delegates to the inner log.
func (l *InstrumentedLog) Close() error {
	return l.inner.Close()
}

var _ Log = (*InstrumentedLog)(nil)
