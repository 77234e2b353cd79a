package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/strata/cli/reader"
)

// AssetModel is a Bubble Tea model showing one asset's status.
type AssetModel struct {
	data     *reader.AssetStatusResponse
	width    int
	height   int
	quitting bool
}

// NewAssetModel creates a model for a *reader.AssetStatusResponse.
func NewAssetModel(data any) (AssetModel, error) {
	resp, ok := data.(*reader.AssetStatusResponse)
	if !ok || resp == nil {
		return AssetModel{}, fmt.Errorf("invalid data type for %s: %T", ViewAssetStatus, data)
	}
	return AssetModel{data: resp}, nil
}

// Init implements tea.Model.
func (m AssetModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m AssetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m AssetModel) View() string {
	if m.quitting {
		return ""
	}
	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return BoxStyle.Render(RenderAssetDetail(m.data)) + "\n" + help
}

// RenderAssetDetail renders the fields of one status response.
func RenderAssetDetail(data *reader.AssetStatusResponse) string {
	var b strings.Builder
	title := data.AssetKey
	if data.Partition != "" {
		title += "[" + data.Partition + "]"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(label+":"), value)
	}
	kind := "asset"
	if data.Source {
		kind = "source"
	}
	field("Kind", ValueStyle.Render(kind))
	field("Status", StatusStyle(data.Status).Render(data.Status))
	field("Code Version", optional(data.CodeVersion))
	field("Current Version", optional(data.CurrentLogicalVersion))
	field("Projected Version", optional(data.ProjectedLogicalVersion))

	if p := data.Provenance; p != nil {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Provenance"))
		b.WriteString("\n")
		field("  Code Version", optional(p.CodeVersion))
		deps := make([]string, 0, len(p.InputLogicalVersions))
		for dep := range p.InputLogicalVersions {
			deps = append(deps, dep)
		}
		slices.Sort(deps)
		for _, dep := range deps {
			field("  "+dep, ValueStyle.Render(p.InputLogicalVersions[dep]))
		}
	}

	if len(data.Causes) > 0 {
		b.WriteString("\n")
		b.WriteString(TitleStyle.Render("Causes"))
		b.WriteString("\n")
		for _, c := range data.Causes {
			fmt.Fprintf(&b, "  • %s %s\n", StatusStyle(c.Status).Render(c.Status), ValueStyle.Render(describeCause(c)))
		}
	}
	return b.String()
}

func describeCause(c reader.CauseItem) string {
	if c.Dependency != nil {
		return fmt.Sprintf("%s: %s (%s)", c.AssetKey, c.Reason, *c.Dependency)
	}
	return fmt.Sprintf("%s: %s", c.AssetKey, c.Reason)
}

func optional(s *string) string {
	if s == nil {
		return MutedStyle.Render("-")
	}
	return ValueStyle.Render(*s)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
