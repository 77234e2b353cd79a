package version

import (
	"maps"

	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/types"
)

// OutputVersion is the choice made at the execution-result boundary:
// derive the logical version from inputs, or use a value the computation
// supplied itself. The zero value derives.
type OutputVersion struct {
	explicit *types.LogicalVersion
}

// Derived returns the choice to derive the version from code and inputs.
func Derived() OutputVersion {
	return OutputVersion{}
}

// Explicit returns the choice to record v verbatim.
func Explicit(v types.LogicalVersion) OutputVersion {
	return OutputVersion{explicit: &v}
}

// IsExplicit reports whether the computation supplied its own version.
func (o OutputVersion) IsExplicit() bool {
	return o.explicit != nil
}

// Value returns the explicit version, if any.
func (o OutputVersion) Value() (types.LogicalVersion, bool) {
	if o.explicit == nil {
		return "", false
	}
	return *o.explicit, true
}

// StampInput holds everything known about one output at execution time.
type StampInput struct {
	// CodeVersion is the code version declared for the asset or output. Nil if none.
	CodeVersion *string
	// InputLogicalVersions maps each upstream to the version it held when execution began.
	InputLogicalVersions map[types.AssetKey]types.LogicalVersion
	// RunID identifies the execution. Used as code identity for unversioned assets.
	RunID string
	// Output selects derived or explicit versioning.
	Output OutputVersion
}

// Stamp is the result of stamping one output.
type Stamp struct {
	LogicalVersion types.LogicalVersion
	Provenance     types.Provenance
	// Tags holds the reserved tags to merge into the record.
	Tags map[string]string
}

// Stamper computes logical versions and provenance for executed outputs.
type Stamper struct {
	collector *metrics.Collector
}

// NewStamper creates a stamper. The collector may be nil.
func NewStamper(collector *metrics.Collector) *Stamper {
	return &Stamper{collector: collector}
}

// Stamp computes the logical version and provenance for one output.
// Provenance is recorded regardless of how the version was obtained.
func (s *Stamper) Stamp(in StampInput) Stamp {
	inputs := maps.Clone(in.InputLogicalVersions)
	if inputs == nil {
		inputs = make(map[types.AssetKey]types.LogicalVersion)
	}

	prov := types.Provenance{
		InputLogicalVersions: inputs,
	}
	if in.CodeVersion != nil {
		cv := *in.CodeVersion
		prov.CodeVersion = &cv
	}

	var lv types.LogicalVersion
	if v, ok := in.Output.Value(); ok {
		lv = v
		s.collector.IncStampExplicit()
	} else {
		switch {
		case prov.CodeVersion != nil:
			lv = ComputeLogicalVersion(prov.CodeVersion, inputs)
		case in.RunID != "":
			lv = computeForRun(in.RunID, inputs)
		default:
			lv = ComputeLogicalVersion(nil, inputs)
		}
		s.collector.IncStampDerived()
	}

	return Stamp{
		LogicalVersion: lv,
		Provenance:     prov,
		Tags:           provenanceTags(lv, prov),
	}
}

// Apply merges the stamp's reserved tags into the record, overwriting any
// user tags that collide with reserved keys.
func (st Stamp) Apply(rec *types.AssetRecord) {
	if rec.Tags == nil {
		rec.Tags = make(map[string]string, len(st.Tags))
	}
	maps.Copy(rec.Tags, st.Tags)
}
