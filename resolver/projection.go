package resolver

import (
	"context"

	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/version"
)

type projectionMode int

const (
	projectUnknown projectionMode = iota
	projectCurrent
	projectCompute
)

// projection decides how the projected version of n is obtained.
// The status of n must be evaluated.
func projection(st *nodeState, n node) projectionMode {
	switch {
	case st.def.Source:
		return projectCurrent
	case st.def.IsPartitioned() && n.partition == "":
		return projectUnknown
	case st.def.CodeVersion == nil:
		return projectUnknown
	case st.status == types.StatusFresh:
		return projectCurrent
	default:
		return projectCompute
	}
}

func (r *CachingStaleStatusResolver) expandProjection(ctx context.Context, n node) ([]node, error) {
	if err := r.evaluate(ctx, n); err != nil {
		return nil, err
	}
	st := r.nodes[n]
	st.projectionInputs = nil
	if projection(st, n) != projectCompute {
		return nil, nil
	}

	deps, err := r.graph.Dependencies(n.key)
	if err != nil {
		return nil, err
	}
	var ups []node
	for _, dep := range deps {
		parts, err := r.graph.UpstreamPartitions(n.key, dep, n.partition)
		if err != nil {
			return nil, err
		}
		in := projectionInput{dep: dep.Key}
		for _, p := range parts {
			in.ups = append(in.ups, node{key: dep.Key, partition: p})
		}
		st.projectionInputs = append(st.projectionInputs, in)
		ups = append(ups, in.ups...)
	}
	return ups, nil
}

func (r *CachingStaleStatusResolver) finishProjection(n node) error {
	st := r.nodes[n]
	st.projectedVersion, st.projectedKnown = r.project(st, n)
	st.projected = true
	return nil
}

func (r *CachingStaleStatusResolver) project(st *nodeState, n node) (types.LogicalVersion, bool) {
	switch projection(st, n) {
	case projectUnknown:
		return "", false
	case projectCurrent:
		return st.current, st.hasCurrent
	}

	inputs := make(map[types.AssetKey]types.LogicalVersion, len(st.projectionInputs))
	for _, in := range st.projectionInputs {
		// A mapping with no upstream partition, e.g. a self-dependency
		// before the first partition.
		if len(in.ups) == 0 {
			return "", false
		}
		versions := make(map[string]types.LogicalVersion, len(in.ups))
		for _, up := range in.ups {
			ust := r.nodes[up]
			if !ust.projectedKnown {
				return "", false
			}
			versions[up.partition] = ust.projectedVersion
		}
		if len(in.ups) == 1 {
			inputs[in.dep] = versions[in.ups[0].partition]
		} else {
			inputs[in.dep] = version.CombinePartitionVersions(versions)
		}
	}
	return version.ComputeLogicalVersion(st.def.CodeVersion, inputs), true
}
