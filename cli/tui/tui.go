package tui

import (
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

// View types that support TUI mode.
const (
	ViewAssetStatus = "status_asset"
	ViewStatusBoard = "status_all"
)

// Run starts the appropriate TUI based on the view type.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	model, err := NewModel(viewType, data)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// NewModel builds the model for a view type.
func NewModel(viewType string, data any) (tea.Model, error) {
	switch viewType {
	case ViewAssetStatus:
		return NewAssetModel(data)
	case ViewStatusBoard:
		return NewBoardModel(data)
	default:
		return nil, fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewAssetStatus, ViewStatusBoard}
}
