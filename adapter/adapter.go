// Package adapter defines the notification boundary for asset events.
//
// Adapters tell downstream systems that an asset gained a new materialization
// or observation, together with the logical version it was stamped with.
// The materializer owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/justapithecus/strata/types"
)

// Event types.
const (
	EventAssetMaterialized = "asset_materialized"
	EventAssetObserved     = "asset_observed"
)

// AssetEvent is the payload published after a record is appended.
type AssetEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"`
	AssetKey        string `json:"asset_key"`
	PartitionKey    string `json:"partition_key,omitempty"`
	RunID           string `json:"run_id"`
	LogicalVersion  string `json:"logical_version"`
	CodeVersion     string `json:"code_version,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
}

// NewAssetEvent builds the event for an appended record.
func NewAssetEvent(rec *types.AssetRecord, lv types.LogicalVersion, codeVersion *string) *AssetEvent {
	eventType := EventAssetMaterialized
	if rec.Kind == types.RecordObservation {
		eventType = EventAssetObserved
	}
	ev := &AssetEvent{
		ContractVersion: types.Version,
		EventType:       eventType,
		AssetKey:        rec.AssetKey.String(),
		PartitionKey:    rec.PartitionKey,
		RunID:           rec.RunID,
		LogicalVersion:  string(lv),
		Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if codeVersion != nil {
		ev.CodeVersion = *codeVersion
	}
	return ev
}

// Adapter publishes asset events to a downstream system.
type Adapter interface {
	// Publish sends one event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *AssetEvent) error

	// Close releases adapter resources.
	Close() error
}
