package lode

import (
	"fmt"
	"net/url"
	"time"

	"github.com/justapithecus/strata/types"
)

// Partition keys of the Hive layout. Every record carries both.
const (
	partitionRecordKind = "record_kind"
	partitionAsset      = "asset"
)

// assetPartitionValue escapes an asset key into a single path segment.
func assetPartitionValue(key types.AssetKey) string {
	return url.QueryEscape(key.String())
}

// toRecordMap converts an asset record to its stored JSONL form.
func toRecordMap(r *types.AssetRecord) map[string]any {
	tags := make(map[string]any, len(r.Tags))
	for k, v := range r.Tags {
		tags[k] = v
	}
	return map[string]any{
		partitionRecordKind: string(r.Kind),
		partitionAsset:      assetPartitionValue(r.AssetKey),
		"asset_key":         r.AssetKey.String(),
		"partition_key":     r.PartitionKey,
		"run_id":            r.RunID,
		"tags":              tags,
		"timestamp":         r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// fromRecordMap rebuilds an asset record from a decoded JSONL row.
func fromRecordMap(m map[string]any) (*types.AssetRecord, error) {
	key, err := types.ParseAssetKey(toString(m["asset_key"]))
	if err != nil {
		return nil, fmt.Errorf("decode asset_key: %w", err)
	}

	rec := &types.AssetRecord{
		Kind:         types.RecordKind(toString(m[partitionRecordKind])),
		AssetKey:     key,
		PartitionKey: toString(m["partition_key"]),
		RunID:        toString(m["run_id"]),
		Tags:         make(map[string]string),
	}
	if raw, ok := m["tags"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				rec.Tags[k] = s
			}
		}
	}
	if ts := toString(m["timestamp"]); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		rec.Timestamp = parsed
	}
	return rec, nil
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
