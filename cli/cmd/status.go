package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/cli/tui"
	"github.com/justapithecus/strata/resolver"
)

// Exit codes.
const (
	exitError = 1
	// exitNotFresh is returned by status --check.
	exitNotFresh = 2
)

// StatusCommand returns the status command.
// Without an argument it reports every asset; with ASSET[PARTITION] it
// reports one asset in detail.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show whether assets are fresh, stale or missing",
		ArgsUsage: "[asset/key[partition]]",
		Flags: append(append(ReadOnlyFlags(), EnvironmentFlags()...),
			PartitionFlag,
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Exit with code 2 unless every reported asset is fresh",
			},
		),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.NArg() > 1 {
		return cli.Exit("status takes at most one asset", exitError)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	res := resolver.New(env.graph, env.log,
		resolver.WithLogger(env.logger),
		resolver.WithCollector(env.collector),
	)
	rd := reader.New(env.graph, res)

	var (
		data     any
		viewType string
		items    []reader.AssetStatusResponse
	)
	if c.NArg() == 1 {
		key, partition, err := reader.ParseAssetRef(c.Args().First())
		if err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		if c.IsSet("partition") {
			if partition != "" {
				return cli.Exit("partition given both in the asset reference and --partition", exitError)
			}
			partition = c.String("partition")
		}
		resp, err := rd.AssetStatus(c.Context, key, partition)
		if err != nil {
			return fmt.Errorf("status of %s: %w", key, err)
		}
		data, viewType, items = resp, tui.ViewAssetStatus, []reader.AssetStatusResponse{*resp}
	} else {
		items, err = rd.Statuses(c.Context, c.String("partition"))
		if err != nil {
			return err
		}
		data, viewType = items, tui.ViewStatusBoard
	}

	if c.Bool("tui") {
		err = r.RenderTUI(viewType, data)
	} else {
		err = r.Render(data)
	}
	if err != nil {
		return err
	}

	if c.Bool("check") {
		if s := reader.Summarize(items); s.Fresh != s.Total {
			return cli.Exit("", exitNotFresh)
		}
	}
	return nil
}
