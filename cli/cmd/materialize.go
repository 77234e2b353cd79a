package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/cli/reader"
	"github.com/justapithecus/strata/cli/render"
	"github.com/justapithecus/strata/runtime"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/version"
)

// MaterializeCommand returns the materialize command.
// It records that an execution produced the given assets; it does not run
// user code.
func MaterializeCommand() *cli.Command {
	return &cli.Command{
		Name:      "materialize",
		Usage:     "Record a materialization of one or more assets in a single run",
		ArgsUsage: "asset/key [asset/key...]",
		Flags: append(append([]cli.Flag{FormatFlag, NoColorFlag}, EnvironmentFlags()...),
			PartitionFlag,
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (generated when empty)",
			},
			&cli.StringSliceFlag{
				Name:  "explicit-version",
				Usage: "Explicit logical version for an output, as asset/key=version (repeatable)",
			},
		),
		Action: materializeAction,
	}
}

func materializeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return cli.Exit("materialize requires at least one asset", exitError)
	}

	explicit, err := parseExplicitVersions(c.StringSlice("explicit-version"))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	outputs := make([]runtime.Output, 0, c.NArg())
	for _, arg := range c.Args().Slice() {
		key, err := types.ParseAssetKey(arg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid asset %q: %v", arg, err), exitError)
		}
		out := runtime.Output{Key: key}
		if v, ok := explicit[key]; ok {
			out.Version = version.Explicit(v)
			delete(explicit, key)
		}
		outputs = append(outputs, out)
	}
	if len(explicit) > 0 {
		keys := slices.SortedFunc(maps.Keys(explicit), types.AssetKey.Compare)
		return cli.Exit(fmt.Sprintf("--explicit-version given for %s, which is not an output", keys[0]), exitError)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	a, err := env.openAdapter()
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	m, err := runtime.NewMaterializer(runtime.Config{
		Graph:     env.graph,
		Log:       env.log,
		Adapter:   a,
		Logger:    env.logger,
		Collector: env.collector,
	})
	if err != nil {
		return err
	}

	result, err := m.Materialize(c.Context, runtime.Request{
		RunID:     c.String("run-id"),
		Partition: c.String("partition"),
		Outputs:   outputs,
	})
	if err != nil {
		if errors.Is(err, runtime.ErrSourceAsset) {
			return cli.Exit(err.Error(), exitError)
		}
		return fmt.Errorf("materialize failed: %w", err)
	}

	return r.Render(newMaterializeResponse(result, outputs))
}

func newMaterializeResponse(result *runtime.Result, outputs []runtime.Output) *reader.MaterializeResponse {
	explicit := make(map[types.AssetKey]bool, len(outputs))
	for _, o := range outputs {
		explicit[o.Key] = o.Version.IsExplicit()
	}

	resp := &reader.MaterializeResponse{
		RunID:           result.RunID,
		Outputs:         make([]reader.MaterializedItem, 0, len(result.Outputs)),
		PublishFailures: result.PublishFailures,
		DurationMs:      result.Duration.Round(time.Millisecond).Milliseconds(),
	}
	for _, o := range result.Outputs {
		inputs := make(map[string]string, len(o.Provenance.InputLogicalVersions))
		for k, v := range o.Provenance.InputLogicalVersions {
			inputs[k.String()] = string(v)
		}
		resp.Outputs = append(resp.Outputs, reader.MaterializedItem{
			AssetKey:       o.Key.String(),
			Partition:      o.PartitionKey,
			LogicalVersion: string(o.LogicalVersion),
			Explicit:       explicit[o.Key],
			CodeVersion:    o.Provenance.CodeVersion,
			Inputs:         inputs,
		})
	}
	return resp
}

// parseExplicitVersions parses asset/key=version pairs.
func parseExplicitVersions(pairs []string) (map[types.AssetKey]types.LogicalVersion, error) {
	out := make(map[types.AssetKey]types.LogicalVersion, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" {
			return nil, fmt.Errorf("invalid --explicit-version %q: want asset/key=version", pair)
		}
		key, err := types.ParseAssetKey(k)
		if err != nil {
			return nil, fmt.Errorf("invalid --explicit-version %q: %w", pair, err)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("--explicit-version given twice for %s", key)
		}
		out[key] = types.LogicalVersion(v)
	}
	return out, nil
}

// ObserveCommand returns the observe command.
func ObserveCommand() *cli.Command {
	return &cli.Command{
		Name:      "observe",
		Usage:     "Record the observed version of a source asset",
		ArgsUsage: "asset/key[partition] version",
		Flags:     append([]cli.Flag{FormatFlag, NoColorFlag}, EnvironmentFlags()...),
		Action:    observeAction,
	}
}

func observeAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.NArg() != 2 {
		return cli.Exit("observe requires an asset and a version", exitError)
	}
	key, partition, err := reader.ParseAssetRef(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	a, err := env.openAdapter()
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	m, err := runtime.NewMaterializer(runtime.Config{
		Graph:     env.graph,
		Log:       env.log,
		Adapter:   a,
		Logger:    env.logger,
		Collector: env.collector,
	})
	if err != nil {
		return err
	}

	rec, err := m.Observe(c.Context, key, partition, types.LogicalVersion(c.Args().Get(1)))
	if err != nil {
		if errors.Is(err, runtime.ErrNotSource) {
			return cli.Exit(err.Error(), exitError)
		}
		return fmt.Errorf("observe failed: %w", err)
	}

	return r.Render(&reader.ObserveResponse{
		AssetKey:       rec.AssetKey.String(),
		Partition:      rec.PartitionKey,
		RunID:          rec.RunID,
		LogicalVersion: c.Args().Get(1),
	})
}
