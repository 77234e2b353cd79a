package types

// StaleStatus is the derived freshness verdict for an asset (partition).
// It is recomputed on every query and never persisted.
type StaleStatus string

const (
	// StatusFresh means a record exists and matches current upstream state transitively.
	StatusFresh StaleStatus = "FRESH"
	// StatusStale means a record exists but current upstream state diverges from its provenance.
	StatusStale StaleStatus = "STALE"
	// StatusMissing means no materialization record exists.
	StatusMissing StaleStatus = "MISSING"
)

// Reasons explaining a StaleStatusCause.
const (
	ReasonNeverMaterialized  = "never materialized"
	ReasonUpdatedInput       = "updated input"
	ReasonStaleInput         = "stale input"
	ReasonUpdatedCodeVersion = "updated code version"
	ReasonRemovedInput       = "removed input"
	ReasonNewInput           = "new input"
)

// StaleStatusCause explains one reason an asset is not fresh.
type StaleStatusCause struct {
	// Status is the status this cause contributes for Key.
	Status StaleStatus `json:"status" yaml:"status"`
	// Key is the asset the cause is attached to.
	Key AssetKey `json:"key" yaml:"key"`
	// Reason is drawn from the fixed Reason* vocabulary.
	Reason string `json:"reason" yaml:"reason"`
	// Dependency is the upstream implicated, when there is one.
	Dependency *AssetKey `json:"dependency" yaml:"dependency"`
}

// NewCause builds a cause without a dependency.
func NewCause(status StaleStatus, key AssetKey, reason string) StaleStatusCause {
	return StaleStatusCause{Status: status, Key: key, Reason: reason}
}

// NewDependencyCause builds a cause implicating an upstream dependency.
func NewDependencyCause(status StaleStatus, key AssetKey, reason string, dep AssetKey) StaleStatusCause {
	return StaleStatusCause{Status: status, Key: key, Reason: reason, Dependency: &dep}
}

// String renders the cause for logs and tables.
func (c StaleStatusCause) String() string {
	s := string(c.Status) + " " + c.Key.String() + ": " + c.Reason
	if c.Dependency != nil {
		s += " (" + c.Dependency.String() + ")"
	}
	return s
}
