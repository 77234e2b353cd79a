package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
)

// ListCommand returns the list command.
// List describes asset definitions only; it never opens the event log.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List asset definitions in dependency order",
		Flags:  append(ReadOnlyFlags(), ConfigFlag),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list command", exitError)
	}

	_, g, err := loadGraph(c)
	if err != nil {
		return err
	}
	return r.Render(reader.New(g, nil).ListAssets())
}
