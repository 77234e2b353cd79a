package resolver

import (
	"testing"
	"time"

	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/version"
)

func projected(t *testing.T, r *CachingStaleStatusResolver, k, partition string) (types.LogicalVersion, bool) {
	t.Helper()
	lv, ok, err := r.ProjectedLogicalVersion(t.Context(), key(k), partition)
	if err != nil {
		t.Fatalf("ProjectedLogicalVersion(%s, %q) error = %v", k, partition, err)
	}
	return lv, ok
}

func TestProjection_PartitionedSelfDependency(t *testing.T) {
	daily := graph.DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := newEnv(t,
		graph.AssetDefinition{
			Key:          key("a"),
			Partitions:   daily,
			Dependencies: []graph.Dependency{{Key: key("a"), Mapping: graph.TimeWindowMapping{StartOffset: -1, EndOffset: -1}}},
		},
		graph.AssetDefinition{Key: key("b"), Dependencies: on("a")},
	)
	r := e.resolver()

	if lv, ok := projected(t, r, "a", ""); ok {
		t.Errorf("a projected = %s, want unknown", lv)
	}
	if lv, ok := projected(t, r, "b", ""); ok {
		t.Errorf("b projected = %s, want unknown", lv)
	}
}

func TestProjection_VersionedSelfDependencyIsUnknown(t *testing.T) {
	daily := graph.DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	e := newEnv(t, graph.AssetDefinition{
		Key:          key("a"),
		CodeVersion:  strPtr("1"),
		Partitions:   daily,
		Dependencies: []graph.Dependency{{Key: key("a"), Mapping: graph.TimeWindowMapping{StartOffset: -1, EndOffset: -1}}},
	})
	r := e.resolver()

	for _, p := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		if lv, ok := projected(t, r, "a", p); ok {
			t.Errorf("a[%s] projected = %s, want unknown", p, lv)
		}
	}
}

func TestProjection_VersionedChain(t *testing.T) {
	e := newEnv(t,
		graph.AssetDefinition{Key: key("src"), Source: true},
		graph.AssetDefinition{Key: key("c"), CodeVersion: strPtr("x"), Dependencies: on("src")},
		graph.AssetDefinition{Key: key("d"), CodeVersion: strPtr("y"), Dependencies: on("c")},
	)

	compute := func(srcVersion types.LogicalVersion) (types.LogicalVersion, types.LogicalVersion) {
		c := version.ComputeLogicalVersion(strPtr("x"), map[types.AssetKey]types.LogicalVersion{key("src"): srcVersion})
		d := version.ComputeLogicalVersion(strPtr("y"), map[types.AssetKey]types.LogicalVersion{key("c"): c})
		return c, d
	}

	wantC, wantD := compute(types.DefaultLogicalVersion)
	r := e.resolver()
	if lv, ok := projected(t, r, "src", ""); !ok || lv != types.DefaultLogicalVersion {
		t.Errorf("src projected = %s, %v", lv, ok)
	}
	if lv, ok := projected(t, r, "c", ""); !ok || lv != wantC {
		t.Errorf("c projected = %s, %v, want %s", lv, ok, wantC)
	}
	if lv, ok := projected(t, r, "d", ""); !ok || lv != wantD {
		t.Errorf("d projected = %s, %v, want %s", lv, ok, wantD)
	}

	// Materializing produces exactly the projected versions.
	e.materialize("", "c", "d")
	r = e.resolver()
	if lv, _, _ := r.CurrentLogicalVersion(t.Context(), key("d"), ""); lv != wantD {
		t.Errorf("d materialized as %s, projected %s", lv, wantD)
	}
	if lv, ok := projected(t, r, "d", ""); !ok || lv != wantD {
		t.Errorf("fresh d projected = %s, %v", lv, ok)
	}

	e.observe("src", "2")
	wantC, wantD = compute("2")
	r = e.resolver()
	assertStatus(t, r, "d", "", types.StatusStale)
	if lv, ok := projected(t, r, "c", ""); !ok || lv != wantC {
		t.Errorf("c projected = %s, want %s", lv, wantC)
	}
	if lv, ok := projected(t, r, "d", ""); !ok || lv != wantD {
		t.Errorf("d projected = %s, want %s", lv, wantD)
	}
}

func TestProjection_UnknownPropagates(t *testing.T) {
	e := newEnv(t,
		graph.AssetDefinition{Key: key("a")},
		graph.AssetDefinition{Key: key("b"), CodeVersion: strPtr("1"), Dependencies: on("a")},
	)
	r := e.resolver()

	if _, ok := projected(t, r, "a", ""); ok {
		t.Error("unversioned a has a projected version")
	}
	if _, ok := projected(t, r, "b", ""); ok {
		t.Error("b downstream of unversioned a has a projected version")
	}
}

func TestProjection_CombinesUpstreamPartitions(t *testing.T) {
	parts := graph.StaticPartitions("x", "y")
	e := newEnv(t,
		graph.AssetDefinition{Key: key("p"), CodeVersion: strPtr("1"), Partitions: parts},
		graph.AssetDefinition{Key: key("rollup"), CodeVersion: strPtr("2"), Dependencies: on("p")},
	)
	r := e.resolver()

	p := version.ComputeLogicalVersion(strPtr("1"), nil)
	want := version.ComputeLogicalVersion(strPtr("2"), map[types.AssetKey]types.LogicalVersion{
		key("p"): version.CombinePartitionVersions(map[string]types.LogicalVersion{"x": p, "y": p}),
	})
	if lv, ok := projected(t, r, "rollup", ""); !ok || lv != want {
		t.Errorf("rollup projected = %s, %v, want %s", lv, ok, want)
	}
	if _, ok := projected(t, r, "p", ""); ok {
		t.Error("partitioned asset without a partition has a projected version")
	}

	e.materialize("x", "p")
	e.materialize("y", "p")
	e.materialize("", "rollup")
	if lv, _, _ := e.resolver().CurrentLogicalVersion(t.Context(), key("rollup"), ""); lv != want {
		t.Errorf("rollup materialized as %s, projected %s", lv, want)
	}
}
