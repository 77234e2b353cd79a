package graph

import (
	"time"
)

// PartitionMapping selects the upstream partitions a downstream partition
// consumes. Implementations never fail: a downstream partition with no
// counterpart upstream maps to an empty slice.
type PartitionMapping interface {
	UpstreamPartitions(downstream string, upstream PartitionsDefinition, now time.Time) []string
}

// IdentityMapping maps a partition to the upstream partition with the same key.
type IdentityMapping struct{}

func (IdentityMapping) UpstreamPartitions(downstream string, upstream PartitionsDefinition, now time.Time) []string {
	if !upstream.Has(downstream, now) {
		return nil
	}
	return []string{downstream}
}

// AllPartitionsMapping maps any partition to every upstream partition.
type AllPartitionsMapping struct{}

func (AllPartitionsMapping) UpstreamPartitions(_ string, upstream PartitionsDefinition, now time.Time) []string {
	return upstream.Keys(now)
}

// LastPartitionMapping maps any partition to the latest upstream partition.
type LastPartitionMapping struct{}

func (LastPartitionMapping) UpstreamPartitions(_ string, upstream PartitionsDefinition, now time.Time) []string {
	keys := upstream.Keys(now)
	if len(keys) == 0 {
		return nil
	}
	return keys[len(keys)-1:]
}

// TimeWindowMapping maps a daily partition to the upstream days in
// [downstream+StartOffset, downstream+EndOffset]. Offsets are in days.
// {StartOffset: -1, EndOffset: -1} selects the previous day.
type TimeWindowMapping struct {
	StartOffset int
	EndOffset   int
}

func (m TimeWindowMapping) UpstreamPartitions(downstream string, upstream PartitionsDefinition, now time.Time) []string {
	day, err := time.Parse(DateLayout, downstream)
	if err != nil {
		return nil
	}
	var keys []string
	for off := m.StartOffset; off <= m.EndOffset; off++ {
		key := day.AddDate(0, 0, off).Format(DateLayout)
		if upstream.Has(key, now) {
			keys = append(keys, key)
		}
	}
	return keys
}
