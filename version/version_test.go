package version

import (
	"maps"
	"testing"

	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

func strPtr(s string) *string { return &s }

func TestComputeLogicalVersion_Deterministic(t *testing.T) {
	a := types.MustAssetKey("a")
	b := types.MustAssetKey("b")

	inputs1 := map[types.AssetKey]types.LogicalVersion{a: "1", b: "2"}
	inputs2 := map[types.AssetKey]types.LogicalVersion{b: "2", a: "1"}

	v1 := ComputeLogicalVersion(strPtr("abc"), inputs1)
	v2 := ComputeLogicalVersion(strPtr("abc"), inputs2)
	if v1 != v2 {
		t.Errorf("identical inputs produced %s and %s", v1, v2)
	}
	if len(v1) != 64 {
		t.Errorf("expected hex sha256, got %q", v1)
	}
}

func TestComputeLogicalVersion_Sensitivity(t *testing.T) {
	a := types.MustAssetKey("a")
	b := types.MustAssetKey("b")
	base := map[types.AssetKey]types.LogicalVersion{a: "1"}

	tests := []struct {
		name   string
		code   *string
		inputs map[types.AssetKey]types.LogicalVersion
	}{
		{name: "different code version", code: strPtr("xyz"), inputs: base},
		{name: "absent code version", code: nil, inputs: base},
		{name: "empty code version", code: strPtr(""), inputs: base},
		{name: "changed upstream version", code: strPtr("abc"), inputs: map[types.AssetKey]types.LogicalVersion{a: "2"}},
		{name: "extra upstream", code: strPtr("abc"), inputs: map[types.AssetKey]types.LogicalVersion{a: "1", b: "1"}},
		{name: "renamed upstream", code: strPtr("abc"), inputs: map[types.AssetKey]types.LogicalVersion{b: "1"}},
		{name: "no upstreams", code: strPtr("abc"), inputs: nil},
	}

	reference := ComputeLogicalVersion(strPtr("abc"), base)
	seen := map[types.LogicalVersion]string{reference: "reference"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLogicalVersion(tt.code, tt.inputs)
			if prev, dup := seen[got]; dup {
				t.Errorf("version collides with %s", prev)
			}
			seen[got] = tt.name
		})
	}
}

func TestComputeLogicalVersion_SegmentBoundaries(t *testing.T) {
	// ["a","b"] and ["a-b"] render differently; paths are hashed structurally.
	v1 := ComputeLogicalVersion(strPtr("c"), map[types.AssetKey]types.LogicalVersion{types.MustAssetKey("a", "b"): "1"})
	v2 := ComputeLogicalVersion(strPtr("c"), map[types.AssetKey]types.LogicalVersion{types.MustAssetKey("ab"): "1"})
	if v1 == v2 {
		t.Error("distinct key paths must not collide")
	}
}

func TestStamper_VersionedAssetIsStableAcrossRuns(t *testing.T) {
	s := NewStamper(nil)
	in := StampInput{CodeVersion: strPtr("abc"), RunID: "run-1"}

	first := s.Stamp(in)
	in.RunID = "run-2"
	second := s.Stamp(in)

	if first.LogicalVersion != second.LogicalVersion {
		t.Errorf("versioned asset got %s then %s", first.LogicalVersion, second.LogicalVersion)
	}
	if first.LogicalVersion != ComputeLogicalVersion(strPtr("abc"), nil) {
		t.Error("stamped version should equal ComputeLogicalVersion")
	}
	if first.Tags[CodeVersionTag] != "abc" {
		t.Errorf("code version tag = %q", first.Tags[CodeVersionTag])
	}
}

func TestStamper_UnversionedAssetDiffersAcrossRuns(t *testing.T) {
	s := NewStamper(nil)

	first := s.Stamp(StampInput{RunID: "run-1"})
	second := s.Stamp(StampInput{RunID: "run-2"})
	again := s.Stamp(StampInput{RunID: "run-1"})

	if first.LogicalVersion == second.LogicalVersion {
		t.Error("unversioned asset should get distinct versions in distinct runs")
	}
	if first.LogicalVersion != again.LogicalVersion {
		t.Error("same run and inputs should be deterministic")
	}
	if _, ok := first.Tags[CodeVersionTag]; ok {
		t.Error("absent code version must not be written as a tag")
	}
	if first.Provenance.CodeVersion != nil {
		t.Error("provenance code version should be nil")
	}
}

func TestStamper_RunIDCannotImpersonateCodeVersion(t *testing.T) {
	s := NewStamper(nil)
	declared := s.Stamp(StampInput{CodeVersion: strPtr("run-1"), RunID: "other"})
	unversioned := s.Stamp(StampInput{RunID: "run-1"})
	if declared.LogicalVersion == unversioned.LogicalVersion {
		t.Error("run identity must hash differently from a declared code version")
	}
}

func TestStamper_ExplicitVersion(t *testing.T) {
	collector := metrics.NewCollector("test")
	s := NewStamper(collector)
	up := types.MustAssetKey("up")

	st := s.Stamp(StampInput{
		CodeVersion:          strPtr("abc"),
		InputLogicalVersions: map[types.AssetKey]types.LogicalVersion{up: "7"},
		RunID:                "run-1",
		Output:               Explicit("foo"),
	})

	if st.LogicalVersion != "foo" {
		t.Errorf("LogicalVersion = %q, want foo", st.LogicalVersion)
	}
	if st.Tags[InputTagKey(up)] != "7" {
		t.Error("provenance must be recorded for explicit versions")
	}

	snap := collector.Snapshot()
	if snap.StampsExplicit != 1 || snap.StampsDerived != 0 {
		t.Errorf("stamps explicit=%d derived=%d", snap.StampsExplicit, snap.StampsDerived)
	}
}

func TestStamper_DoesNotAliasInputs(t *testing.T) {
	s := NewStamper(nil)
	up := types.MustAssetKey("up")
	inputs := map[types.AssetKey]types.LogicalVersion{up: "1"}

	st := s.Stamp(StampInput{CodeVersion: strPtr("abc"), InputLogicalVersions: inputs})
	inputs[up] = "2"

	if st.Provenance.InputLogicalVersions[up] != "1" {
		t.Error("provenance must be a snapshot, not a live view of caller state")
	}
}

func TestTags_RoundTrip(t *testing.T) {
	s := NewStamper(nil)
	a := types.MustAssetKey("raw", "a")
	b := types.MustAssetKey("b")
	st := s.Stamp(StampInput{
		CodeVersion:          strPtr("v2"),
		InputLogicalVersions: map[types.AssetKey]types.LogicalVersion{a: "1", b: "2"},
	})

	rec := &types.AssetRecord{Tags: map[string]string{"owner": "data-eng"}}
	st.Apply(rec)

	lv, ok := ExtractLogicalVersion(rec.Tags)
	if !ok || lv != st.LogicalVersion {
		t.Errorf("ExtractLogicalVersion = %q, %v", lv, ok)
	}
	if rec.Tags["owner"] != "data-eng" {
		t.Error("user tags should be preserved")
	}

	prov := ExtractProvenance(rec.Tags)
	if prov.CodeVersion == nil || *prov.CodeVersion != "v2" {
		t.Errorf("CodeVersion = %v", prov.CodeVersion)
	}
	if !maps.Equal(prov.InputLogicalVersions, st.Provenance.InputLogicalVersions) {
		t.Errorf("inputs = %v, want %v", prov.InputLogicalVersions, st.Provenance.InputLogicalVersions)
	}
}

func TestExtractProvenance_SkipsMalformedKeys(t *testing.T) {
	tags := map[string]string{
		LogicalVersionTag:                         "lv",
		InputLogicalVersionTagPrefix + "/":        "x",
		InputLogicalVersionTagPrefix + "/a//b":    "y",
		InputLogicalVersionTagPrefix + "/good":    "z",
		InputLogicalVersionTagPrefix + "-trailer": "w",
	}

	prov := ExtractProvenance(tags)
	if len(prov.InputLogicalVersions) != 1 {
		t.Fatalf("expected 1 entry, got %v", prov.InputLogicalVersions)
	}
	if prov.InputLogicalVersions[types.MustAssetKey("good")] != "z" {
		t.Error("valid entry missing")
	}
	if prov.CodeVersion != nil {
		t.Error("no code version tag should read as nil")
	}
}

func TestCombinePartitionVersions(t *testing.T) {
	v1 := CombinePartitionVersions(map[string]types.LogicalVersion{"a": "1", "b": "2"})
	v2 := CombinePartitionVersions(map[string]types.LogicalVersion{"b": "2", "a": "1"})
	v3 := CombinePartitionVersions(map[string]types.LogicalVersion{"a": "1", "b": "3"})

	if v1 != v2 {
		t.Error("combination must not depend on map order")
	}
	if v1 == v3 {
		t.Error("changing one partition must change the combination")
	}
}
