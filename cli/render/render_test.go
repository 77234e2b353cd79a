package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/justapithecus/strata/cli/reader"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
		{"invalid with message", "csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)

	data := map[string]string{"key": "value"}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, `"key"`) || !strings.Contains(got, `"value"`) {
		t.Errorf("JSON output missing expected content: %s", got)
	}
}

func TestRenderer_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, false, &buf)

	data := map[string]string{"key": "value"}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "key:") || !strings.Contains(got, "value") {
		t.Errorf("YAML output missing expected content: %s", got)
	}
}

func TestRenderer_Table_FallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)

	data := map[string]int{"value": 42}
	if err := r.Render(data); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); got != "value: 42\n" {
		t.Errorf("fallback output = %q", got)
	}
}

func TestRenderer_EmptyTables(t *testing.T) {
	for name, data := range map[string]any{
		"statuses": []reader.AssetStatusResponse{},
		"assets":   []reader.ListAssetItem{},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRendererWithWriter(FormatTable, false, &buf).Render(data); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if !strings.Contains(buf.String(), "(no results)") {
				t.Errorf("empty table should show '(no results)', got: %s", buf.String())
			}
		})
	}
}

func TestRenderer_MaterializeTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)
	resp := &reader.MaterializeResponse{
		RunID: "run-1",
		Outputs: []reader.MaterializedItem{
			{AssetKey: "warehouse/orders", Partition: "eu", LogicalVersion: "0123456789abcdef", CodeVersion: strPtr("v1"), Inputs: map[string]string{"raw/events": "INITIAL"}},
			{AssetKey: "reports/summary", LogicalVersion: "manual", Explicit: true, Inputs: map[string]string{}},
		},
		PublishFailures: 2,
		DurationMs:      15,
	}
	if err := r.Render(resp); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(buf.String(), "\n")
	if lines[0] != "run run-1: 2 outputs in 15ms" {
		t.Errorf("first line = %q", lines[0])
	}
	got := buf.String()
	for _, want := range []string{"LOGICAL VERSION", "0123456789ab ", "derived", "explicit", "manual", "warning: 2 notifications failed to publish"} {
		if !strings.Contains(got, want) {
			t.Errorf("materialize table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "0123456789abc") {
		t.Errorf("logical version should be shortened:\n%s", got)
	}
}

func TestRenderer_ObserveAndVersion(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "observe",
			data: &reader.ObserveResponse{AssetKey: "raw/events", RunID: "r-1", LogicalVersion: "v7"},
			want: []string{"asset:", "raw/events", "logical_version:", "v7", "run_id:", "r-1"},
		},
		{
			name: "version",
			data: &reader.VersionResponse{Version: "0.1.0", TagContract: "1"},
			want: []string{"strata 0.1.0", "commit:       -", "tag contract: 1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRendererWithWriter(FormatTable, false, &buf).Render(tt.data); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
	var buf bytes.Buffer
	_ = NewRendererWithWriter(FormatTable, false, &buf).Render(&reader.ObserveResponse{AssetKey: "a", RunID: "r", LogicalVersion: "v"})
	if strings.Contains(buf.String(), "partition:") {
		t.Errorf("unpartitioned observation should omit partition:\n%s", buf.String())
	}
}

func TestRenderer_NoColor_DoesNotAffectJSON(t *testing.T) {
	// --no-color should not change JSON output
	var bufColor, bufNoColor bytes.Buffer

	rColor := NewRendererWithWriter(FormatJSON, false, &bufColor)
	rNoColor := NewRendererWithWriter(FormatJSON, true, &bufNoColor)

	data := map[string]string{"key": "value"}

	if err := rColor.Render(data); err != nil {
		t.Fatalf("Render with color failed: %v", err)
	}
	if err := rNoColor.Render(data); err != nil {
		t.Fatalf("Render without color failed: %v", err)
	}

	if bufColor.String() != bufNoColor.String() {
		t.Errorf("--no-color should not affect JSON output")
	}
}

func strPtr(s string) *string { return &s }

func statusFixture() []reader.AssetStatusResponse {
	return []reader.AssetStatusResponse{
		{AssetKey: "raw/events", Source: true, Status: "FRESH", Causes: []reader.CauseItem{}, CurrentLogicalVersion: strPtr("INITIAL")},
		{
			AssetKey:    "warehouse/orders",
			Partition:   "2024-01-01",
			CodeVersion: strPtr("v1"),
			Status:      "STALE",
			Causes: []reader.CauseItem{
				{Status: "STALE", AssetKey: "warehouse/orders", Reason: "updated input", Dependency: strPtr("raw/events")},
				{Status: "STALE", AssetKey: "warehouse/orders", Reason: "updated code version"},
			},
			CurrentLogicalVersion: strPtr("0123456789abcdef0123"),
			Provenance: &reader.ProvenanceItem{
				CodeVersion:          strPtr("v0"),
				InputLogicalVersions: map[string]string{"raw/events": "INITIAL"},
			},
		},
		{
			AssetKey: "reports/summary",
			Status:   "MISSING",
			Causes:   []reader.CauseItem{{Status: "MISSING", AssetKey: "reports/summary", Reason: "never materialized"}},
		},
	}
}

func TestRenderer_StatusTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)
	if err := r.Render(statusFixture()); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasPrefix(lines[0], "ASSET") {
		t.Errorf("first line should be the header: %q", lines[0])
	}
	statusCol := strings.Index(lines[0], "STATUS")
	for i, want := range []string{"FRESH", "STALE", "MISSING"} {
		if got := lines[i+1][statusCol:]; !strings.HasPrefix(got, want) {
			t.Errorf("row %d status column = %q, want %s", i, got, want)
		}
	}
	if !strings.Contains(lines[2], "warehouse/orders: updated input (raw/events) (+1 more)") {
		t.Errorf("row should show first cause: %q", lines[2])
	}
	if !strings.Contains(lines[2], "0123456789ab ") || strings.Contains(lines[2], "0123456789abc") {
		t.Errorf("current version should be shortened: %q", lines[2])
	}
	if !strings.Contains(buf.String(), "3 assets: 1 fresh, 1 stale, 1 missing") {
		t.Errorf("missing summary line:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("--no-color output contains escape codes")
	}
}

func TestRenderer_StatusDetail(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)
	items := statusFixture()
	if err := r.Render(&items[1]); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"asset:",
		"warehouse/orders",
		"partition:",
		"provenance.input[raw/events]:",
		"status: STALE",
		"  STALE warehouse/orders: updated code version",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("detail missing %q:\n%s", want, got)
		}
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "projected_logical_version:") && !strings.HasSuffix(line, " -") {
			t.Errorf("unknown projection should render as '-': %q", line)
		}
	}
}

func TestRenderer_AssetTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, false, &buf)
	items := []reader.ListAssetItem{
		{AssetKey: "raw/events", Kind: "source", Dependencies: []string{}},
		{AssetKey: "warehouse/orders", Kind: "asset", CodeVersion: strPtr("v1"), Partitions: "daily from 2024-01-01", Dependencies: []string{"raw/events"}},
	}
	if err := r.Render(items); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"ASSET", "DEPENDENCIES", "source", "daily from 2024-01-01", "raw/events"} {
		if !strings.Contains(got, want) {
			t.Errorf("asset table missing %q:\n%s", want, got)
		}
	}
}

func TestRenderer_StatusJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, false, &buf)
	items := statusFixture()
	if err := r.Render(&items[2]); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["status"] != "MISSING" || got["current_logical_version"] != nil {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
	if _, ok := got["provenance"]; ok {
		t.Error("absent provenance should be omitted")
	}
}

func TestRenderer_RenderTUI_Unsupported(t *testing.T) {
	r := NewRendererWithWriter(FormatTable, false, &bytes.Buffer{})
	if err := r.RenderTUI("list_assets", nil); err == nil {
		t.Error("expected error for unsupported TUI view")
	}
}
