package graph

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/strata/types"
)

func key(s string) types.AssetKey { return types.MustAssetKey(s) }

func on(keys ...string) []Dependency {
	deps := make([]Dependency, 0, len(keys))
	for _, k := range keys {
		deps = append(deps, Dependency{Key: key(k)})
	}
	return deps
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestNew_DependencyChain(t *testing.T) {
	g, err := New([]AssetDefinition{
		{Key: key("c"), Dependencies: on("b")},
		{Key: key("a")},
		{Key: key("b"), Dependencies: on("a")},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := g.TopologicalOrder()
	want := []types.AssetKey{key("a"), key("b"), key("c")}
	if !slices.Equal(got, want) {
		t.Errorf("TopologicalOrder() = %v, want %v", got, want)
	}

	children, err := g.Children(key("a"))
	if err != nil || !slices.Equal(children, []types.AssetKey{key("b")}) {
		t.Errorf("Children(a) = %v, %v", children, err)
	}
}

func TestNew_DiamondOrderIsDeterministic(t *testing.T) {
	defs := []AssetDefinition{
		{Key: key("d"), Dependencies: on("c", "b")},
		{Key: key("c"), Dependencies: on("a")},
		{Key: key("b"), Dependencies: on("a")},
		{Key: key("a")},
	}
	g, err := New(defs)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	want := []types.AssetKey{key("a"), key("b"), key("c"), key("d")}
	for range 5 {
		if got := g.TopologicalOrder(); !slices.Equal(got, want) {
			t.Fatalf("TopologicalOrder() = %v, want %v", got, want)
		}
	}

	deps, _ := g.Dependencies(key("d"))
	if deps[0].Key != key("b") || deps[1].Key != key("c") {
		t.Errorf("Dependencies(d) not sorted: %v", deps)
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	daily := DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		defs []AssetDefinition
		want error
	}{
		{
			name: "zero key",
			defs: []AssetDefinition{{}},
			want: ErrInvalidGraph,
		},
		{
			name: "duplicate key",
			defs: []AssetDefinition{{Key: key("a")}, {Key: key("a")}},
			want: ErrInvalidGraph,
		},
		{
			name: "undefined dependency",
			defs: []AssetDefinition{{Key: key("a"), Dependencies: on("missing")}},
			want: ErrInvalidGraph,
		},
		{
			name: "duplicate dependency",
			defs: []AssetDefinition{{Key: key("a")}, {Key: key("b"), Dependencies: on("a", "a")}},
			want: ErrInvalidGraph,
		},
		{
			name: "source with dependencies",
			defs: []AssetDefinition{{Key: key("a")}, {Key: key("s"), Source: true, Dependencies: on("a")}},
			want: ErrInvalidGraph,
		},
		{
			name: "unpartitioned self dependency",
			defs: []AssetDefinition{{Key: key("a"), Dependencies: on("a")}},
			want: ErrInvalidGraph,
		},
		{
			name: "identity self dependency",
			defs: []AssetDefinition{{
				Key:          key("a"),
				Partitions:   daily,
				Dependencies: []Dependency{{Key: key("a"), Mapping: IdentityMapping{}}},
			}},
			want: ErrInvalidGraph,
		},
		{
			name: "two node cycle",
			defs: []AssetDefinition{
				{Key: key("a"), Dependencies: on("b")},
				{Key: key("b"), Dependencies: on("a")},
			},
			want: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
			var ge *GraphError
			if !errors.As(err, &ge) {
				t.Errorf("error should be a *GraphError, got %T", err)
			}
		})
	}
}

func TestNew_CycleWitness(t *testing.T) {
	_, err := New([]AssetDefinition{
		{Key: key("root")},
		{Key: key("a"), Dependencies: on("root", "c")},
		{Key: key("b"), Dependencies: on("a")},
		{Key: key("c"), Dependencies: on("b")},
	})
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> c -> a") {
		t.Errorf("unexpected witness: %v", err)
	}
}

func TestNew_PartitionedSelfDependency(t *testing.T) {
	daily := DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	g, err := New([]AssetDefinition{
		{
			Key:          key("a"),
			Partitions:   daily,
			Dependencies: []Dependency{{Key: key("a"), Mapping: TimeWindowMapping{StartOffset: -1, EndOffset: -1}}},
		},
		{Key: key("b"), Partitions: daily, Dependencies: on("a")},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := g.TopologicalOrder(); !slices.Equal(got, []types.AssetKey{key("a"), key("b")}) {
		t.Errorf("TopologicalOrder() = %v", got)
	}
	children, _ := g.Children(key("a"))
	if !slices.Equal(children, []types.AssetKey{key("b")}) {
		t.Errorf("self edge should not appear among children: %v", children)
	}
	deps, _ := g.Dependencies(key("a"))
	if len(deps) != 1 || deps[0].Key != key("a") {
		t.Errorf("self edge should appear among dependencies: %v", deps)
	}
}

func TestGraph_UnknownAsset(t *testing.T) {
	g, err := New([]AssetDefinition{{Key: key("a")}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Get(key("nope")); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("Get() error = %v", err)
	}
	if _, err := g.Dependencies(key("nope")); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("Dependencies() error = %v", err)
	}
	if _, err := g.Children(key("nope")); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("Children() error = %v", err)
	}
}

func TestGraph_UpstreamPartitions(t *testing.T) {
	now := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
	daily := DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	static := StaticPartitions("x", "y")

	g, err := New([]AssetDefinition{
		{Key: key("plain")},
		{Key: key("days"), Partitions: daily},
		{Key: key("colors"), Partitions: static},
		{
			Key:        key("down_days"),
			Partitions: daily,
			Dependencies: []Dependency{
				{Key: key("plain")},
				{Key: key("days")},
				{Key: key("colors"), Mapping: LastPartitionMapping{}},
			},
		},
		{Key: key("rollup"), Dependencies: on("days")},
		{
			Key:          key("lagged"),
			Partitions:   daily,
			Dependencies: []Dependency{{Key: key("lagged"), Mapping: TimeWindowMapping{StartOffset: -1, EndOffset: -1}}},
		},
	}, fixedClock(now))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		downstream string
		dep        string
		partition  string
		want       []string
	}{
		{"unpartitioned upstream", "down_days", "plain", "2024-01-02", []string{""}},
		{"default identity", "down_days", "days", "2024-01-02", []string{"2024-01-02"}},
		{"identity out of range", "down_days", "days", "2024-01-09", nil},
		{"last partition", "down_days", "colors", "2024-01-02", []string{"y"}},
		{"default all partitions", "rollup", "days", "", []string{"2024-01-01", "2024-01-02", "2024-01-03"}},
		{"previous day", "lagged", "lagged", "2024-01-03", []string{"2024-01-02"}},
		{"previous day before start", "lagged", "lagged", "2024-01-01", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, err := g.Dependencies(key(tt.downstream))
			if err != nil {
				t.Fatal(err)
			}
			idx := slices.IndexFunc(deps, func(d Dependency) bool { return d.Key == key(tt.dep) })
			got, err := g.UpstreamPartitions(key(tt.downstream), deps[idx], tt.partition)
			if err != nil {
				t.Fatalf("UpstreamPartitions() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("UpstreamPartitions() = %v, want %v", got, tt.want)
			}
		})
	}
}
