package graph

import (
	"slices"
	"testing"
	"time"
)

func TestDailyPartitions(t *testing.T) {
	start := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	d := DailyPartitions(start)
	now := time.Date(2024, 1, 3, 23, 59, 0, 0, time.UTC)

	got := d.Keys(now)
	want := []string{"2024-01-01", "2024-01-02"}
	if !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	tests := []struct {
		key  string
		want bool
	}{
		{"2024-01-01", true},
		{"2024-01-02", true},
		{"2024-01-03", false}, // day not yet complete
		{"2023-12-31", false},
		{"not-a-date", false},
	}
	for _, tt := range tests {
		if got := d.Has(tt.key, now); got != tt.want {
			t.Errorf("Has(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestDailyPartitions_BeforeStart(t *testing.T) {
	d := DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if keys := d.Keys(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)); len(keys) != 0 {
		t.Errorf("Keys() = %v, want none", keys)
	}
}

func TestStaticPartitions(t *testing.T) {
	s := StaticPartitions("b", "a")
	if got := s.Keys(time.Time{}); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Keys() = %v, declaration order expected", got)
	}
	if !s.Has("a", time.Time{}) || s.Has("c", time.Time{}) {
		t.Error("Has() mismatch")
	}
}

func TestMappings(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	daily := DailyPartitions(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name       string
		mapping    PartitionMapping
		downstream string
		want       []string
	}{
		{"identity", IdentityMapping{}, "2024-01-05", []string{"2024-01-05"}},
		{"identity unknown", IdentityMapping{}, "2025-01-05", nil},
		{"last", LastPartitionMapping{}, "anything", []string{"2024-01-09"}},
		{"window", TimeWindowMapping{StartOffset: -2, EndOffset: 0}, "2024-01-05", []string{"2024-01-03", "2024-01-04", "2024-01-05"}},
		{"window clipped at start", TimeWindowMapping{StartOffset: -2, EndOffset: 0}, "2024-01-01", []string{"2024-01-01"}},
		{"window on non-date", TimeWindowMapping{StartOffset: -1, EndOffset: -1}, "x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mapping.UpstreamPartitions(tt.downstream, daily, now)
			if !slices.Equal(got, tt.want) {
				t.Errorf("UpstreamPartitions() = %v, want %v", got, tt.want)
			}
		})
	}

	if n := len(AllPartitionsMapping{}.UpstreamPartitions("", daily, now)); n != 9 {
		t.Errorf("all partitions = %d, want 9", n)
	}
}
