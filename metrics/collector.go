// Package metrics provides in-process counters for versioning, storage and
// status resolution.
//
// The Collector is a leaf package with no internal dependencies. Status
// counters are keyed by the status string so callers pass types.StaleStatus
// values through a plain conversion.
package metrics

import (
	"maps"
	"sync"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Version stamping
	StampsDerived  int64
	StampsExplicit int64

	// Execution
	Materializations int64
	Observations     int64

	// Event log / Storage
	RecordWriteSuccess int64
	RecordWriteFailure int64
	LogReads           int64
	LogReadFailures    int64

	// Resolver
	ResolverCacheHits   int64
	ResolverCacheMisses int64
	StatusesResolved    map[string]int64

	// Adapter
	AdapterPublishSuccess int64
	AdapterPublishFailure int64

	// Dimensions (informational, set at construction)
	StorageBackend string
}

// Collector accumulates counters for a process.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	stampsDerived  int64
	stampsExplicit int64

	materializations int64
	observations     int64

	recordWriteSuccess int64
	recordWriteFailure int64
	logReads           int64
	logReadFailures    int64

	resolverCacheHits   int64
	resolverCacheMisses int64
	statusesResolved    map[string]int64

	adapterPublishSuccess int64
	adapterPublishFailure int64

	storageBackend string
}

// NewCollector creates a Collector labelled with the event log backend
// (memory, fs, s3, postgres).
func NewCollector(storageBackend string) *Collector {
	return &Collector{
		statusesResolved: make(map[string]int64),
		storageBackend:   storageBackend,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Version stamping ---

// IncStampDerived records a logical version derived from code and inputs.
func (c *Collector) IncStampDerived() {
	if c == nil {
		return
	}
	c.inc(&c.stampsDerived)
}

// IncStampExplicit records a logical version supplied by the computation.
func (c *Collector) IncStampExplicit() {
	if c == nil {
		return
	}
	c.inc(&c.stampsExplicit)
}

// --- Execution ---

// IncMaterialization records one materialized output.
func (c *Collector) IncMaterialization() {
	if c == nil {
		return
	}
	c.inc(&c.materializations)
}

// IncObservation records one source observation.
func (c *Collector) IncObservation() {
	if c == nil {
		return
	}
	c.inc(&c.observations)
}

// --- Event log / Storage ---
// Write counters are per-call. A batch append counts once.

// IncRecordWriteSuccess records a successful append to the event log.
func (c *Collector) IncRecordWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.recordWriteSuccess)
}

// IncRecordWriteFailure records a failed append to the event log.
func (c *Collector) IncRecordWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.recordWriteFailure)
}

// IncLogRead records a latest-record lookup against the event log.
func (c *Collector) IncLogRead() {
	if c == nil {
		return
	}
	c.inc(&c.logReads)
}

// IncLogReadFailure records a lookup that failed with a storage error.
// A missing record is not a failure.
func (c *Collector) IncLogReadFailure() {
	if c == nil {
		return
	}
	c.inc(&c.logReadFailures)
}

// --- Resolver ---

// IncResolverCacheHit records a query answered from the resolver cache.
func (c *Collector) IncResolverCacheHit() {
	if c == nil {
		return
	}
	c.inc(&c.resolverCacheHits)
}

// IncResolverCacheMiss records a node evaluated for the first time.
func (c *Collector) IncResolverCacheMiss() {
	if c == nil {
		return
	}
	c.inc(&c.resolverCacheMisses)
}

// IncStatus records one evaluated node with the given status.
func (c *Collector) IncStatus(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.statusesResolved[status]++
	c.mu.Unlock()
}

// --- Adapter ---

// IncAdapterPublishSuccess records a delivered event notification.
func (c *Collector) IncAdapterPublishSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.adapterPublishSuccess)
}

// IncAdapterPublishFailure records an event notification that was dropped
// after retries.
func (c *Collector) IncAdapterPublishFailure() {
	if c == nil {
		return
	}
	c.inc(&c.adapterPublishFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		StampsDerived:  c.stampsDerived,
		StampsExplicit: c.stampsExplicit,

		Materializations: c.materializations,
		Observations:     c.observations,

		RecordWriteSuccess: c.recordWriteSuccess,
		RecordWriteFailure: c.recordWriteFailure,
		LogReads:           c.logReads,
		LogReadFailures:    c.logReadFailures,

		ResolverCacheHits:   c.resolverCacheHits,
		ResolverCacheMisses: c.resolverCacheMisses,
		StatusesResolved:    maps.Clone(c.statusesResolved),

		AdapterPublishSuccess: c.adapterPublishSuccess,
		AdapterPublishFailure: c.adapterPublishFailure,

		StorageBackend: c.storageBackend,
	}
}
