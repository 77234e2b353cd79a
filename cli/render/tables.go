package render

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/tui"
)

// versionWidth is how much of a logical version the status table shows.
const versionWidth = 12

// status colors a status unless --no-color is set.
func (r *Renderer) status(s string) string {
	if r.noColor {
		return s
	}
	return tui.StatusStyle(strings.TrimSpace(s)).Render(s)
}

func (r *Renderer) renderStatusDetail(d *reader.AssetStatusResponse) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "asset:\t%s\n", d.AssetKey)
	if d.Partition != "" {
		fmt.Fprintf(w, "partition:\t%s\n", d.Partition)
	}
	fmt.Fprintf(w, "code_version:\t%s\n", orDash(d.CodeVersion))
	fmt.Fprintf(w, "current_logical_version:\t%s\n", orDash(d.CurrentLogicalVersion))
	fmt.Fprintf(w, "projected_logical_version:\t%s\n", orDash(d.ProjectedLogicalVersion))
	if p := d.Provenance; p != nil {
		fmt.Fprintf(w, "provenance.code_version:\t%s\n", orDash(p.CodeVersion))
		deps := make([]string, 0, len(p.InputLogicalVersions))
		for dep := range p.InputLogicalVersions {
			deps = append(deps, dep)
		}
		slices.Sort(deps)
		for _, dep := range deps {
			fmt.Fprintf(w, "provenance.input[%s]:\t%s\n", dep, p.InputLogicalVersions[dep])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "status: %s\n", r.status(d.Status))
	for _, c := range d.Causes {
		fmt.Fprintf(r.out, "  %s %s\n", r.status(c.Status), causeText(c))
	}
	return nil
}

// renderStatusTable pads columns by hand: color escapes would skew a
// tabwriter's width accounting.
func (r *Renderer) renderStatusTable(items []reader.AssetStatusResponse) error {
	if len(items) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	header := []string{"ASSET", "PARTITION", "STATUS", "CURRENT", "CAUSE"}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		cause := ""
		if len(it.Causes) > 0 {
			cause = causeText(it.Causes[0])
			if len(it.Causes) > 1 {
				cause += fmt.Sprintf(" (+%d more)", len(it.Causes)-1)
			}
		}
		rows = append(rows, []string{
			it.AssetKey,
			orDashString(it.Partition),
			it.Status,
			shortVersion(it.CurrentLogicalVersion),
			cause,
		})
	}

	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	pad := func(s string, i int) string {
		return s + strings.Repeat(" ", widths[i]-len(s))
	}

	var b strings.Builder
	for i, cell := range header {
		if i == len(header)-1 {
			b.WriteString(cell)
			break
		}
		b.WriteString(pad(cell, i) + "  ")
	}
	fmt.Fprintln(r.out, strings.TrimRight(b.String(), " "))

	for _, row := range rows {
		line := pad(row[0], 0) + "  " +
			pad(row[1], 1) + "  " +
			r.status(pad(row[2], 2)) + "  " +
			pad(row[3], 3) + "  " +
			row[4]
		fmt.Fprintln(r.out, strings.TrimRight(line, " "))
	}

	s := reader.Summarize(items)
	fmt.Fprintf(r.out, "\n%d assets: %d fresh, %d stale, %d missing\n", s.Total, s.Fresh, s.Stale, s.Missing)
	return nil
}

func (r *Renderer) renderAssetTable(items []reader.ListAssetItem) error {
	if len(items) == 0 {
		fmt.Fprintln(r.out, "(no results)")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tKIND\tCODE VERSION\tPARTITIONS\tDEPENDENCIES")
	for _, it := range items {
		deps := strings.Join(it.Dependencies, ",")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			it.AssetKey, it.Kind, orDash(it.CodeVersion), orDashString(it.Partitions), orDashString(deps))
	}
	return w.Flush()
}

func (r *Renderer) renderMaterializeTable(d *reader.MaterializeResponse) error {
	fmt.Fprintf(r.out, "run %s: %d outputs in %dms\n\n", d.RunID, len(d.Outputs), d.DurationMs)

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tPARTITION\tLOGICAL VERSION\tORIGIN\tCODE VERSION\tINPUTS")
	for _, it := range d.Outputs {
		origin := "derived"
		if it.Explicit {
			origin = "explicit"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			it.AssetKey, orDashString(it.Partition), shortVersion(&it.LogicalVersion), origin, orDash(it.CodeVersion), len(it.Inputs))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if d.PublishFailures > 0 {
		fmt.Fprintf(r.out, "\nwarning: %d notifications failed to publish\n", d.PublishFailures)
	}
	return nil
}

func (r *Renderer) renderObserveDetail(d *reader.ObserveResponse) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "asset:\t%s\n", d.AssetKey)
	if d.Partition != "" {
		fmt.Fprintf(w, "partition:\t%s\n", d.Partition)
	}
	fmt.Fprintf(w, "logical_version:\t%s\n", d.LogicalVersion)
	fmt.Fprintf(w, "run_id:\t%s\n", d.RunID)
	return w.Flush()
}

func (r *Renderer) renderVersion(d *reader.VersionResponse) error {
	fmt.Fprintf(r.out, "strata %s\n", d.Version)
	fmt.Fprintf(r.out, "commit:       %s\n", orDashString(d.Commit))
	fmt.Fprintf(r.out, "tag contract: %s\n", d.TagContract)
	return nil
}

func causeText(c reader.CauseItem) string {
	if c.Dependency != nil {
		return fmt.Sprintf("%s: %s (%s)", c.AssetKey, c.Reason, *c.Dependency)
	}
	return fmt.Sprintf("%s: %s", c.AssetKey, c.Reason)
}

func shortVersion(v *string) string {
	if v == nil {
		return "-"
	}
	if len(*v) > versionWidth {
		return (*v)[:versionWidth]
	}
	return *v
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return orDashString(*s)
}

func orDashString(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
