package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/strata/cli/reader"
)

// BoardModel is a Bubble Tea model listing every asset's status with the
// selected asset's details below.
type BoardModel struct {
	items    []reader.AssetStatusResponse
	summary  reader.StatusSummary
	table    table.Model
	width    int
	height   int
	quitting bool
}

// NewBoardModel creates a model for a []reader.AssetStatusResponse.
func NewBoardModel(data any) (BoardModel, error) {
	items, ok := data.([]reader.AssetStatusResponse)
	if !ok {
		return BoardModel{}, fmt.Errorf("invalid data type for %s: %T", ViewStatusBoard, data)
	}

	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, table.Row{it.AssetKey, it.Partition, it.Status, fmt.Sprintf("%d", len(it.Causes))})
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Asset", Width: 32},
			{Title: "Partition", Width: 12},
			{Title: "Status", Width: 8},
			{Title: "Causes", Width: 6},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 12)+1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(primaryColor).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(highlightColor)
	t.SetStyles(styles)

	return BoardModel{
		items:   items,
		summary: reader.Summarize(items),
		table:   t,
	}, nil
}

// Init implements tea.Model.
func (m BoardModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// Selected returns the highlighted row, or nil when there are no assets.
func (m BoardModel) Selected() *reader.AssetStatusResponse {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.items) {
		return nil
	}
	return &m.items[i]
}

// View implements tea.Model.
func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Asset Status"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Total", m.summary.Total, highlightColor),
		renderStatBox("Fresh", m.summary.Fresh, statusColor("FRESH")),
		renderStatBox("Stale", m.summary.Stale, statusColor("STALE")),
		renderStatBox("Missing", m.summary.Missing, statusColor("MISSING")),
	))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(MutedStyle.Render("(no assets)"))
	} else {
		b.WriteString(m.table.View())
		if sel := m.Selected(); sel != nil {
			b.WriteString("\n\n")
			b.WriteString(BoxStyle.Render(RenderAssetDetail(sel)))
		}
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("↑/↓ select • q quit"))
	return b.String()
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	content := StatLabelStyle.Render(label) + "\n" +
		StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	return StatBoxStyle.BorderForeground(color).Render(content)
}
