package reader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/resolver"
	"github.com/justapithecus/strata/types"
)

// Reader abstracts read-only data access for CLI commands.
type Reader interface {
	// AssetStatus reports one asset partition. Pass "" for unpartitioned assets.
	AssetStatus(ctx context.Context, key types.AssetKey, partition string) (*AssetStatusResponse, error)
	// Statuses reports every asset in topological order.
	Statuses(ctx context.Context, partition string) ([]AssetStatusResponse, error)
	// ListAssets describes every asset definition in topological order.
	ListAssets() []ListAssetItem
}

// ResolverReader answers from an asset graph and a stale status resolver.
// It sees the log as of the resolver's first query.
type ResolverReader struct {
	graph    *graph.Graph
	resolver *resolver.CachingStaleStatusResolver
}

// New creates a reader.
func New(g *graph.Graph, r *resolver.CachingStaleStatusResolver) *ResolverReader {
	return &ResolverReader{graph: g, resolver: r}
}

// AssetStatus reports one asset partition.
func (r *ResolverReader) AssetStatus(ctx context.Context, key types.AssetKey, partition string) (*AssetStatusResponse, error) {
	def, err := r.graph.Get(key)
	if err != nil {
		return nil, err
	}
	if !def.IsPartitioned() {
		partition = ""
	}

	status, err := r.resolver.Status(ctx, key, partition)
	if err != nil {
		return nil, err
	}
	causes, err := r.resolver.Causes(ctx, key, partition)
	if err != nil {
		return nil, err
	}
	current, hasCurrent, err := r.resolver.CurrentLogicalVersion(ctx, key, partition)
	if err != nil {
		return nil, err
	}
	projected, hasProjected, err := r.resolver.ProjectedLogicalVersion(ctx, key, partition)
	if err != nil {
		return nil, err
	}
	prov, hasProv, err := r.resolver.CurrentProvenance(ctx, key, partition)
	if err != nil {
		return nil, err
	}

	resp := &AssetStatusResponse{
		AssetKey:    key.String(),
		Partition:   partition,
		Source:      def.Source,
		CodeVersion: def.CodeVersion,
		Status:      string(status),
		Causes:      make([]CauseItem, 0, len(causes)),
	}
	for _, c := range causes {
		resp.Causes = append(resp.Causes, causeItem(c))
	}
	if hasCurrent {
		resp.CurrentLogicalVersion = versionPtr(current)
	}
	if hasProjected {
		resp.ProjectedLogicalVersion = versionPtr(projected)
	}
	if hasProv {
		resp.Provenance = provenanceItem(prov)
	}
	return resp, nil
}

// Statuses reports every asset in topological order. partition applies to
// partitioned assets that define it; others are judged across partitions.
func (r *ResolverReader) Statuses(ctx context.Context, partition string) ([]AssetStatusResponse, error) {
	now := r.graph.Now()
	order := r.graph.TopologicalOrder()
	out := make([]AssetStatusResponse, 0, len(order))
	for _, key := range order {
		def, err := r.graph.Get(key)
		if err != nil {
			return nil, err
		}
		p := ""
		if def.IsPartitioned() && partition != "" && def.Partitions.Has(partition, now) {
			p = partition
		}
		resp, err := r.AssetStatus(ctx, key, p)
		if err != nil {
			return nil, fmt.Errorf("status of %s: %w", key, err)
		}
		out = append(out, *resp)
	}
	return out, nil
}

// ListAssets describes every asset definition in topological order.
func (r *ResolverReader) ListAssets() []ListAssetItem {
	order := r.graph.TopologicalOrder()
	items := make([]ListAssetItem, 0, len(order))
	for _, key := range order {
		def, err := r.graph.Get(key)
		if err != nil {
			continue
		}
		item := ListAssetItem{
			AssetKey:     key.String(),
			Kind:         "asset",
			CodeVersion:  def.CodeVersion,
			Partitions:   describePartitions(def.Partitions),
			Dependencies: make([]string, 0, len(def.Dependencies)),
			Description:  def.Description,
		}
		if def.Source {
			item.Kind = "source"
		}
		deps, _ := r.graph.Dependencies(key)
		for _, d := range deps {
			item.Dependencies = append(item.Dependencies, d.Key.String())
		}
		items = append(items, item)
	}
	return items
}

func causeItem(c types.StaleStatusCause) CauseItem {
	item := CauseItem{
		Status:   string(c.Status),
		AssetKey: c.Key.String(),
		Reason:   c.Reason,
	}
	if c.Dependency != nil {
		dep := c.Dependency.String()
		item.Dependency = &dep
	}
	return item
}

func provenanceItem(p *types.Provenance) *ProvenanceItem {
	item := &ProvenanceItem{
		CodeVersion:          p.CodeVersion,
		InputLogicalVersions: make(map[string]string, len(p.InputLogicalVersions)),
	}
	for k, v := range p.InputLogicalVersions {
		item.InputLogicalVersions[k.String()] = string(v)
	}
	return item
}

func versionPtr(v types.LogicalVersion) *string {
	s := string(v)
	return &s
}

func describePartitions(p graph.PartitionsDefinition) string {
	switch d := p.(type) {
	case nil:
		return ""
	case *graph.DailyPartitionsDefinition:
		return "daily from " + d.Start().Format(graph.DateLayout)
	case *graph.StaticPartitionsDefinition:
		return "static: " + strings.Join(d.Keys(time.Time{}), ",")
	default:
		return fmt.Sprintf("%T", p)
	}
}

var _ Reader = (*ResolverReader)(nil)
