// Package resolver determines whether materialized assets are fresh, stale or
// missing by comparing recorded provenance against current upstream state.
//
// Evaluation is memoized per (asset key, partition) for the lifetime of a
// resolver instance. Construct a new resolver to observe new writes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/store"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/version"
)

// Option configures a resolver.
type Option func(*CachingStaleStatusResolver)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *log.Logger) Option {
	return func(r *CachingStaleStatusResolver) {
		r.logger = l
	}
}

// WithCollector sets the metrics collector. May be nil.
func WithCollector(c *metrics.Collector) Option {
	return func(r *CachingStaleStatusResolver) {
		r.collector = c
	}
}

// nodeState is the memoized evaluation of one node.
type nodeState struct {
	def    graph.AssetDefinition
	record *types.AssetRecord
	// constraints are the upstream nodes compared against provenance.
	constraints []constraint

	evaluated  bool
	status     types.StaleStatus
	causes     []types.StaleStatusCause
	current    types.LogicalVersion
	hasCurrent bool
	provenance *types.Provenance

	projected        bool
	projectedVersion types.LogicalVersion
	projectedKnown   bool
	projectionInputs []projectionInput
}

// constraint is a dependency together with the upstream partitions its
// mapping yields, in mapping order.
type constraint struct {
	dep types.AssetKey
	ups []node
}

type projectionInput struct {
	dep types.AssetKey
	// ups is nil when the mapping yields no upstream partition.
	ups []node
}

// CachingStaleStatusResolver answers staleness queries against one graph and
// one event log. Safe for concurrent use.
type CachingStaleStatusResolver struct {
	graph     *graph.Graph
	log       store.Reader
	logger    *log.Logger
	collector *metrics.Collector

	mu    sync.Mutex
	nodes map[node]*nodeState
}

// New creates a resolver. No I/O is performed until the first query.
func New(g *graph.Graph, reader store.Reader, opts ...Option) *CachingStaleStatusResolver {
	r := &CachingStaleStatusResolver{
		graph:  g,
		log:    reader,
		logger: log.NewNop(),
		nodes:  make(map[node]*nodeState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status returns the staleness of an asset partition. Pass "" for
// unpartitioned assets; a partitioned asset queried with "" is judged by its
// most recent materialization across partitions.
func (r *CachingStaleStatusResolver) Status(ctx context.Context, key types.AssetKey, partition string) (types.StaleStatus, error) {
	st, err := r.resolve(ctx, key, partition)
	if err != nil {
		return "", err
	}
	return st.status, nil
}

// Causes returns why an asset partition is not fresh. Empty iff FRESH.
// Causes of stale upstreams follow the cause that implicates them.
func (r *CachingStaleStatusResolver) Causes(ctx context.Context, key types.AssetKey, partition string) ([]types.StaleStatusCause, error) {
	st, err := r.resolve(ctx, key, partition)
	if err != nil {
		return nil, err
	}
	return slices.Clone(st.causes), nil
}

// CurrentLogicalVersion returns the logical version of the latest record.
// Sources report their latest observed version, or the default version when
// never observed. ok is false when the asset was never materialized.
func (r *CachingStaleStatusResolver) CurrentLogicalVersion(ctx context.Context, key types.AssetKey, partition string) (types.LogicalVersion, bool, error) {
	st, err := r.resolve(ctx, key, partition)
	if err != nil {
		return "", false, err
	}
	return st.current, st.hasCurrent, nil
}

// CurrentProvenance returns the provenance of the latest materialization.
// ok is false for sources and for assets never materialized.
func (r *CachingStaleStatusResolver) CurrentProvenance(ctx context.Context, key types.AssetKey, partition string) (*types.Provenance, bool, error) {
	st, err := r.resolve(ctx, key, partition)
	if err != nil {
		return nil, false, err
	}
	if st.provenance == nil {
		return nil, false, nil
	}
	p := *st.provenance
	p.InputLogicalVersions = maps.Clone(p.InputLogicalVersions)
	return &p, true, nil
}

// ProjectedLogicalVersion returns the version a materialization would
// receive if the asset and its stale upstreams were materialized now.
// ok is false when it cannot be known ahead of execution: unversioned
// assets, partitioned assets queried without a partition, and mappings that
// yield no upstream partition.
func (r *CachingStaleStatusResolver) ProjectedLogicalVersion(ctx context.Context, key types.AssetKey, partition string) (types.LogicalVersion, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.node(key, partition)
	if err != nil {
		return "", false, err
	}
	w := walker{
		done:   func(n node) bool { st := r.nodes[n]; return st != nil && st.projected },
		expand: r.expandProjection,
		finish: r.finishProjection,
	}
	if err := w.run(ctx, n); err != nil {
		return "", false, err
	}
	st := r.nodes[n]
	return st.projectedVersion, st.projectedKnown, nil
}

func (r *CachingStaleStatusResolver) resolve(ctx context.Context, key types.AssetKey, partition string) (*nodeState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.node(key, partition)
	if err != nil {
		return nil, err
	}
	if err := r.evaluate(ctx, n); err != nil {
		return nil, err
	}
	return r.nodes[n], nil
}

// node validates key and partition and normalizes the partition of
// unpartitioned assets.
func (r *CachingStaleStatusResolver) node(key types.AssetKey, partition string) (node, error) {
	def, err := r.graph.Get(key)
	if err != nil {
		return node{}, err
	}
	if !def.IsPartitioned() {
		partition = ""
	}
	if partition != "" && !def.Partitions.Has(partition, r.graph.Now()) {
		return node{}, graph.UnknownPartitionError(key, partition)
	}
	return node{key: key, partition: partition}, nil
}

func (r *CachingStaleStatusResolver) evaluate(ctx context.Context, n node) error {
	if st := r.nodes[n]; st != nil && st.evaluated {
		r.collector.IncResolverCacheHit()
		return nil
	}
	w := walker{
		done:   func(n node) bool { st := r.nodes[n]; return st != nil && st.evaluated },
		expand: r.expandStatus,
		finish: r.finishStatus,
	}
	return w.run(ctx, n)
}

// load reads the definition and latest record of n, once.
func (r *CachingStaleStatusResolver) load(ctx context.Context, n node) (*nodeState, error) {
	if st := r.nodes[n]; st != nil {
		return st, nil
	}
	def, err := r.graph.Get(n.key)
	if err != nil {
		return nil, err
	}

	kind := types.RecordMaterialization
	if def.Source {
		kind = types.RecordObservation
	}

	var rec *types.AssetRecord
	if def.IsPartitioned() && n.partition == "" {
		rec, err = r.log.LatestAnyPartition(ctx, kind, n.key)
	} else {
		rec, err = r.log.Latest(ctx, kind, n.key, n.partition)
	}
	if err != nil && !errors.Is(err, store.ErrNoRecord) {
		return nil, fmt.Errorf("read latest %s of %s: %w", kind, n, err)
	}

	st := &nodeState{def: def, record: rec}
	r.nodes[n] = st
	return st, nil
}

func (r *CachingStaleStatusResolver) expandStatus(ctx context.Context, n node) ([]node, error) {
	st, err := r.load(ctx, n)
	if err != nil {
		return nil, err
	}
	if st.def.Source || st.record == nil {
		return nil, nil
	}

	deps, err := r.graph.Dependencies(n.key)
	if err != nil {
		return nil, err
	}
	st.constraints = st.constraints[:0]
	var ups []node
	for _, dep := range deps {
		c, ok, err := r.constrain(n, dep)
		if err != nil {
			return nil, err
		}
		if ok {
			st.constraints = append(st.constraints, c)
			ups = append(ups, c.ups...)
		}
	}
	return ups, nil
}

// constrain resolves dep to the upstream nodes it maps to. A dependency
// carries no constraint when the upstream is partitioned and the downstream
// partition is unknown, or when the mapping yields no upstream partition.
func (r *CachingStaleStatusResolver) constrain(n node, dep graph.Dependency) (constraint, bool, error) {
	upDef, err := r.graph.Get(dep.Key)
	if err != nil {
		return constraint{}, false, err
	}
	if upDef.IsPartitioned() && n.partition == "" {
		return constraint{}, false, nil
	}
	parts, err := r.graph.UpstreamPartitions(n.key, dep, n.partition)
	if err != nil {
		return constraint{}, false, err
	}
	if len(parts) == 0 {
		return constraint{}, false, nil
	}
	c := constraint{dep: dep.Key, ups: make([]node, len(parts))}
	for i, p := range parts {
		c.ups[i] = node{key: dep.Key, partition: p}
	}
	return c, true, nil
}

// upstreamCauses returns the causes of every upstream node of c that is not
// fresh, in mapping order. ok is false when all of them are fresh.
func (r *CachingStaleStatusResolver) upstreamCauses(c constraint) (causes []types.StaleStatusCause, ok bool) {
	for _, up := range c.ups {
		if ust := r.nodes[up]; ust.status != types.StatusFresh {
			causes = append(causes, ust.causes...)
			ok = true
		}
	}
	return causes, ok
}

// inputVersion is the version a materialization would record for c now:
// the upstream version, or the combined version of several partitions.
func (r *CachingStaleStatusResolver) inputVersion(c constraint) types.LogicalVersion {
	if len(c.ups) == 1 {
		return r.nodes[c.ups[0]].current
	}
	versions := make(map[string]types.LogicalVersion, len(c.ups))
	for _, up := range c.ups {
		versions[up.partition] = r.nodes[up].current
	}
	return version.CombinePartitionVersions(versions)
}

func (r *CachingStaleStatusResolver) finishStatus(n node) error {
	st := r.nodes[n]
	r.collector.IncResolverCacheMiss()

	switch {
	case st.def.Source:
		st.status = types.StatusFresh
		st.current, st.hasCurrent = types.DefaultLogicalVersion, true
		if st.record != nil {
			if lv, ok := version.ExtractLogicalVersion(st.record.Tags); ok {
				st.current = lv
			}
		}

	case st.record == nil:
		st.status = types.StatusMissing
		st.causes = []types.StaleStatusCause{
			types.NewCause(types.StatusMissing, n.key, types.ReasonNeverMaterialized),
		}

	default:
		prov := version.ExtractProvenance(st.record.Tags)
		st.provenance = &prov
		st.current, st.hasCurrent = version.ExtractLogicalVersion(st.record.Tags)
		if !st.hasCurrent {
			st.current, st.hasCurrent = types.DefaultLogicalVersion, true
		}
		causes, err := r.staleCauses(n, st, prov)
		if err != nil {
			return err
		}
		st.causes = causes
		st.status = types.StatusFresh
		if len(causes) > 0 {
			st.status = types.StatusStale
		}
	}

	st.evaluated = true
	r.collector.IncStatus(string(st.status))
	r.logger.WithAsset(n.key.String(), n.partition).Debug("resolved stale status", map[string]any{
		"status": string(st.status),
		"causes": len(st.causes),
	})
	return nil
}

// staleCauses compares provenance with current upstream state. Order:
// removed inputs, then each constrained dependency in key order, then the
// asset's own code version.
func (r *CachingStaleStatusResolver) staleCauses(n node, st *nodeState, prov types.Provenance) ([]types.StaleStatusCause, error) {
	deps, err := r.graph.Dependencies(n.key)
	if err != nil {
		return nil, err
	}
	current := make(map[types.AssetKey]struct{}, len(deps))
	for _, d := range deps {
		current[d.Key] = struct{}{}
	}

	var causes []types.StaleStatusCause

	recorded := slices.SortedFunc(maps.Keys(prov.InputLogicalVersions), types.AssetKey.Compare)
	for _, k := range recorded {
		if _, ok := current[k]; !ok {
			causes = append(causes, types.NewDependencyCause(types.StatusStale, n.key, types.ReasonRemovedInput, k))
		}
	}

	for _, c := range st.constraints {
		upCauses, notFresh := r.upstreamCauses(c)
		recordedVersion, inProvenance := prov.InputLogicalVersions[c.dep]
		switch {
		case !inProvenance:
			causes = append(causes, types.NewDependencyCause(types.StatusStale, n.key, types.ReasonNewInput, c.dep))
			causes = append(causes, upCauses...)
		case notFresh:
			causes = append(causes, types.NewDependencyCause(types.StatusStale, n.key, types.ReasonStaleInput, c.dep))
			causes = append(causes, upCauses...)
		case r.inputVersion(c) != recordedVersion:
			causes = append(causes, types.NewDependencyCause(types.StatusStale, n.key, types.ReasonUpdatedInput, c.dep))
		}
	}

	if !sameCodeVersion(st.def.CodeVersion, prov.CodeVersion) {
		causes = append(causes, types.NewCause(types.StatusStale, n.key, types.ReasonUpdatedCodeVersion))
	}
	return causes, nil
}

// sameCodeVersion treats absent and declared as different states.
func sameCodeVersion(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
