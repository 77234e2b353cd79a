package graph

import (
	"slices"
	"time"
)

// DateLayout is the partition key format of daily partitions.
const DateLayout = "2006-01-02"

// PartitionsDefinition describes the partition keys of an asset.
// Keys may depend on the current time.
type PartitionsDefinition interface {
	// Keys returns all partition keys that exist at now, in order.
	Keys(now time.Time) []string
	// Has reports whether key is a partition that exists at now.
	Has(key string, now time.Time) bool
}

// StaticPartitionsDefinition is a fixed, ordered set of partition keys.
type StaticPartitionsDefinition struct {
	keys []string
}

// StaticPartitions returns a definition with the given keys in order.
func StaticPartitions(keys ...string) *StaticPartitionsDefinition {
	return &StaticPartitionsDefinition{keys: slices.Clone(keys)}
}

// Keys returns the static keys.
func (s *StaticPartitionsDefinition) Keys(time.Time) []string {
	return slices.Clone(s.keys)
}

// Has reports whether key is one of the static keys.
func (s *StaticPartitionsDefinition) Has(key string, _ time.Time) bool {
	return slices.Contains(s.keys, key)
}

// DailyPartitionsDefinition has one partition per UTC day, from a start
// date up to the last day that has fully elapsed.
type DailyPartitionsDefinition struct {
	start time.Time
}

// DailyPartitions returns daily partitions starting on start's UTC day.
func DailyPartitions(start time.Time) *DailyPartitionsDefinition {
	return &DailyPartitionsDefinition{start: truncateDay(start)}
}

// Start returns the first partition day.
func (d *DailyPartitionsDefinition) Start() time.Time {
	return d.start
}

// Keys returns the complete days between start and now.
func (d *DailyPartitionsDefinition) Keys(now time.Time) []string {
	var keys []string
	for day := d.start; !day.AddDate(0, 0, 1).After(now); day = day.AddDate(0, 0, 1) {
		keys = append(keys, day.Format(DateLayout))
	}
	return keys
}

// Has reports whether key is a complete day between start and now.
func (d *DailyPartitionsDefinition) Has(key string, now time.Time) bool {
	day, err := time.Parse(DateLayout, key)
	if err != nil {
		return false
	}
	return !day.Before(d.start) && !day.AddDate(0, 0, 1).After(now)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
