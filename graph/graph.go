// Package graph holds the asset definitions and their dependency edges.
//
// A Graph is validated on construction and immutable afterwards. It is safe
// for concurrent read access.
package graph

import (
	"container/heap"
	"slices"
	"time"

	"github.com/justapithecus/strata/types"
)

// AssetDefinition declares one asset.
type AssetDefinition struct {
	Key types.AssetKey
	// CodeVersion is the declared code version. Nil means none was declared.
	CodeVersion *string
	// Source assets are produced outside the system. They are observed, never materialized.
	Source bool
	// Partitions is nil for unpartitioned assets.
	Partitions   PartitionsDefinition
	Dependencies []Dependency
	Description  string
}

// IsPartitioned reports whether the asset has a partitions definition.
func (d AssetDefinition) IsPartitioned() bool {
	return d.Partitions != nil
}

// Dependency is an edge from an upstream asset.
type Dependency struct {
	Key types.AssetKey
	// Mapping selects upstream partitions. Nil picks the default for the pair.
	Mapping PartitionMapping
}

// Option configures a Graph.
type Option func(*Graph)

// WithClock overrides the clock used to evaluate time-based partitions.
func WithClock(now func() time.Time) Option {
	return func(g *Graph) {
		g.clock = now
	}
}

// Graph is a validated set of asset definitions.
type Graph struct {
	defs     map[types.AssetKey]AssetDefinition
	keys     []types.AssetKey // sorted
	deps     map[types.AssetKey][]Dependency
	children map[types.AssetKey][]types.AssetKey
	order    []types.AssetKey
	clock    func() time.Time
}

// New builds and validates a Graph.
//
// Validation rejects:
//   - zero or duplicate asset keys
//   - dependencies on undefined assets, and duplicate dependencies
//   - dependencies declared on source assets
//   - self-dependencies, except partition-offset mappings on partitioned assets
//   - any cycle (direct or indirect)
func New(defs []AssetDefinition, opts ...Option) (*Graph, error) {
	g := &Graph{
		defs:     make(map[types.AssetKey]AssetDefinition, len(defs)),
		deps:     make(map[types.AssetKey][]Dependency, len(defs)),
		children: make(map[types.AssetKey][]types.AssetKey),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, d := range defs {
		if d.Key.IsZero() {
			return nil, invalidf("asset key is required")
		}
		if _, exists := g.defs[d.Key]; exists {
			return nil, invalidf("duplicate asset: %q", d.Key)
		}
		d.Dependencies = slices.Clone(d.Dependencies)
		g.defs[d.Key] = d
		g.keys = append(g.keys, d.Key)
	}
	types.SortAssetKeys(g.keys)

	for _, key := range g.keys {
		d := g.defs[key]
		if d.Source && len(d.Dependencies) > 0 {
			return nil, invalidf("source asset %q declares dependencies", key)
		}

		deps := slices.Clone(d.Dependencies)
		slices.SortFunc(deps, func(a, b Dependency) int { return a.Key.Compare(b.Key) })
		for i, dep := range deps {
			if _, ok := g.defs[dep.Key]; !ok {
				return nil, invalidf("asset %q depends on undefined asset %q", key, dep.Key)
			}
			if i > 0 && deps[i-1].Key == dep.Key {
				return nil, invalidf("asset %q declares dependency %q twice", key, dep.Key)
			}
			if dep.Key == key {
				if err := validateSelfDependency(d, dep); err != nil {
					return nil, err
				}
				continue
			}
			g.children[dep.Key] = append(g.children[dep.Key], key)
		}
		g.deps[key] = deps
	}
	for k := range g.children {
		types.SortAssetKeys(g.children[k])
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

func validateSelfDependency(d AssetDefinition, dep Dependency) error {
	if !d.IsPartitioned() {
		return invalidf("unpartitioned asset %q depends on itself", d.Key)
	}
	switch dep.Mapping.(type) {
	case nil, IdentityMapping, AllPartitionsMapping:
		return invalidf("asset %q depends on itself without a partition offset", d.Key)
	}
	return nil
}

// Now returns the graph clock's current time.
func (g *Graph) Now() time.Time {
	return g.clock()
}

// Get returns the definition of key.
func (g *Graph) Get(key types.AssetKey) (AssetDefinition, error) {
	d, ok := g.defs[key]
	if !ok {
		return AssetDefinition{}, UnknownAssetError(key)
	}
	return d, nil
}

// Has reports whether key is defined.
func (g *Graph) Has(key types.AssetKey) bool {
	_, ok := g.defs[key]
	return ok
}

// Keys returns all asset keys in sorted order.
func (g *Graph) Keys() []types.AssetKey {
	return slices.Clone(g.keys)
}

// Dependencies returns the current dependencies of key, sorted by upstream key.
// Self-dependencies are included.
func (g *Graph) Dependencies(key types.AssetKey) ([]Dependency, error) {
	if !g.Has(key) {
		return nil, UnknownAssetError(key)
	}
	return slices.Clone(g.deps[key]), nil
}

// Children returns the assets that depend on key, sorted. Self-dependencies are excluded.
func (g *Graph) Children(key types.AssetKey) ([]types.AssetKey, error) {
	if !g.Has(key) {
		return nil, UnknownAssetError(key)
	}
	return slices.Clone(g.children[key]), nil
}

// TopologicalOrder returns every key with upstreams before downstreams.
// Ties are broken by key order, so the result is deterministic.
func (g *Graph) TopologicalOrder() []types.AssetKey {
	return slices.Clone(g.order)
}

// UpstreamPartitions returns the partitions of dep consumed by the given
// partition of the downstream asset. An unpartitioned upstream yields [""].
// When the dependency has no mapping, partitioned pairs map by identity and
// an unpartitioned downstream consumes all upstream partitions.
func (g *Graph) UpstreamPartitions(downstream types.AssetKey, dep Dependency, partition string) ([]string, error) {
	down, err := g.Get(downstream)
	if err != nil {
		return nil, err
	}
	up, err := g.Get(dep.Key)
	if err != nil {
		return nil, err
	}
	if !up.IsPartitioned() {
		return []string{""}, nil
	}

	mapping := dep.Mapping
	if mapping == nil {
		if down.IsPartitioned() {
			mapping = IdentityMapping{}
		} else {
			mapping = AllPartitionsMapping{}
		}
	}
	return mapping.UpstreamPartitions(partition, up.Partitions, g.Now()), nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// edges returns outgoing adjacency (upstream -> downstream) by sorted key
// index. Self-edges are excluded; partition offsets make them acyclic.
func (g *Graph) edges() ([][]int, []int) {
	index := make(map[types.AssetKey]int, len(g.keys))
	for i, k := range g.keys {
		index[k] = i
	}
	outgoing := make([][]int, len(g.keys))
	indeg := make([]int, len(g.keys))
	for i, k := range g.keys {
		for _, c := range g.children[k] {
			outgoing[i] = append(outgoing[i], index[c])
			indeg[index[c]]++
		}
	}
	return outgoing, indeg
}

// validateAcyclic orders the graph with Kahn's algorithm and, if nodes
// remain, extracts a deterministic cycle witness.
func (g *Graph) validateAcyclic() error {
	outgoing, indeg := g.edges()

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]types.AssetKey, 0, len(g.keys))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		order = append(order, g.keys[n])
		for _, m := range outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}

	if len(order) == len(g.keys) {
		g.order = order
		return nil
	}
	return CycleError(g.findCycle(outgoing))
}

// findCycle performs a DFS in key order and returns one cycle path, closed
// on its first node.
func (g *Graph) findCycle(outgoing [][]int) []string {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.keys))
	parent := make([]int, len(g.keys))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back-edge u -> v closes v ... u -> v.
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.keys {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.keys[cycle[i]].String())
	}
	return out
}
