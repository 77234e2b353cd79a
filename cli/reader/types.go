// Package reader provides the read-side data access layer for the strata CLI
// and the response payloads shared by every renderer.
//
// Commands never talk to the resolver directly: the reader turns resolver
// answers into responses.
package reader

// CauseItem is one stale-status cause.
type CauseItem struct {
	Status     string  `json:"status" yaml:"status"`
	AssetKey   string  `json:"asset_key" yaml:"asset_key"`
	Reason     string  `json:"reason" yaml:"reason"`
	Dependency *string `json:"dependency" yaml:"dependency"`
}

// ProvenanceItem is the provenance of the latest materialization.
type ProvenanceItem struct {
	CodeVersion *string `json:"code_version" yaml:"code_version"`
	// InputLogicalVersions is keyed by upstream user string.
	InputLogicalVersions map[string]string `json:"input_logical_versions" yaml:"input_logical_versions"`
}

// AssetStatusResponse describes the staleness of one asset partition.
type AssetStatusResponse struct {
	AssetKey    string  `json:"asset_key" yaml:"asset_key"`
	Partition   string  `json:"partition,omitempty" yaml:"partition,omitempty"`
	Source      bool    `json:"source" yaml:"source"`
	CodeVersion *string `json:"code_version" yaml:"code_version"`
	Status      string  `json:"status" yaml:"status"`
	// Causes is empty iff Status is FRESH.
	Causes                  []CauseItem     `json:"causes" yaml:"causes"`
	CurrentLogicalVersion   *string         `json:"current_logical_version" yaml:"current_logical_version"`
	ProjectedLogicalVersion *string         `json:"projected_logical_version" yaml:"projected_logical_version"`
	Provenance              *ProvenanceItem `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// ListAssetItem describes one asset definition.
type ListAssetItem struct {
	AssetKey     string   `json:"asset_key" yaml:"asset_key"`
	Kind         string   `json:"kind" yaml:"kind"` // source or asset
	CodeVersion  *string  `json:"code_version" yaml:"code_version"`
	Partitions   string   `json:"partitions,omitempty" yaml:"partitions,omitempty"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// StatusSummary counts statuses across a set of responses.
type StatusSummary struct {
	Total   int `json:"total" yaml:"total"`
	Fresh   int `json:"fresh" yaml:"fresh"`
	Stale   int `json:"stale" yaml:"stale"`
	Missing int `json:"missing" yaml:"missing"`
}

// MaterializedItem describes one recorded output.
type MaterializedItem struct {
	AssetKey       string `json:"asset_key" yaml:"asset_key"`
	Partition      string `json:"partition,omitempty" yaml:"partition,omitempty"`
	LogicalVersion string `json:"logical_version" yaml:"logical_version"`
	// Explicit is true when the version was supplied rather than derived.
	Explicit    bool              `json:"explicit" yaml:"explicit"`
	CodeVersion *string           `json:"code_version" yaml:"code_version"`
	Inputs      map[string]string `json:"input_logical_versions" yaml:"input_logical_versions"`
}

// MaterializeResponse is the response for the materialize command.
type MaterializeResponse struct {
	RunID           string             `json:"run_id" yaml:"run_id"`
	Outputs         []MaterializedItem `json:"outputs" yaml:"outputs"`
	PublishFailures int                `json:"publish_failures" yaml:"publish_failures"`
	DurationMs      int64              `json:"duration_ms" yaml:"duration_ms"`
}

// ObserveResponse is the response for the observe command.
type ObserveResponse struct {
	AssetKey       string `json:"asset_key" yaml:"asset_key"`
	Partition      string `json:"partition,omitempty" yaml:"partition,omitempty"`
	RunID          string `json:"run_id" yaml:"run_id"`
	LogicalVersion string `json:"logical_version" yaml:"logical_version"`
}

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	// TagContract is the version of the reserved record tag layout.
	TagContract string `json:"tag_contract" yaml:"tag_contract"`
}
