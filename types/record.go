package types

import (
	"errors"
	"fmt"
	"time"
)

// LogicalVersion fingerprints "what inputs and code produced this materialization".
// Two materializations with equal logical versions are interchangeable.
type LogicalVersion string

// DefaultLogicalVersion is the version of a source asset that has never been
// observed, and the version recorded for an upstream that was never materialized.
const DefaultLogicalVersion LogicalVersion = "INITIAL"

// Provenance is the snapshot recorded with a materialization: the asset's own
// code version and the logical version of every input at execution time.
// It is written once and never updated.
type Provenance struct {
	// CodeVersion is the declared code version. Nil when none was declared.
	CodeVersion *string
	// InputLogicalVersions maps each consumed upstream to its version at execution time.
	InputLogicalVersions map[AssetKey]LogicalVersion
}

// RecordKind discriminates entries of the asset event log.
type RecordKind string

const (
	// RecordMaterialization marks a computation that produced asset output.
	RecordMaterialization RecordKind = "materialization"
	// RecordObservation marks an observed version of a source asset.
	RecordObservation RecordKind = "observation"
)

// AssetRecord is one entry of the append-only asset event log.
// Logical version, code version and provenance travel in Tags under the
// reserved keys defined by package version.
type AssetRecord struct {
	// Kind is materialization or observation.
	Kind RecordKind
	// AssetKey is the asset this record belongs to.
	AssetKey AssetKey
	// PartitionKey scopes the record to a partition. Empty for unpartitioned assets.
	PartitionKey string
	// RunID identifies the execution that wrote the record.
	RunID string
	// Tags carries arbitrary string metadata, including reserved version tags.
	Tags map[string]string
	// Timestamp establishes log order.
	Timestamp time.Time
}

// Validate checks the fields required to append a record.
func (r *AssetRecord) Validate() error {
	if r.AssetKey.IsZero() {
		return errors.New("asset_key must be set")
	}
	switch r.Kind {
	case RecordMaterialization, RecordObservation:
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	return nil
}
