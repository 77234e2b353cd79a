// Package cmd provides CLI commands for the strata binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for rendering commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for the status command.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (status only)",
	}

	// ConfigFlag points at the strata.yaml defining assets and storage.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to strata.yaml",
		Value:   "strata.yaml",
		EnvVars: []string{"STRATA_CONFIG"},
	}

	// VerboseFlag turns on debug logging to stderr.
	VerboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "Log debug output to stderr",
	}

	// PartitionFlag selects a partition of partitioned assets.
	PartitionFlag = &cli.StringFlag{
		Name:    "partition",
		Aliases: []string{"p"},
		Usage:   "Partition key (ignored by unpartitioned assets)",
	}
)

// ReadOnlyFlags returns the shared flags for all rendering commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// StorageFlags override the storage section of strata.yaml.
func StorageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Event log backend: fs, s3, postgres or memory",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "storage-dataset",
			Usage: "Lode dataset name (fs, s3, memory)",
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "AWS region for the s3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint for S3-compatible stores",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Use path-style S3 addressing",
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Postgres connection URL for the postgres backend",
			EnvVars: []string{"STRATA_DATABASE_URL"},
		},
	}
}

// EnvironmentFlags returns the flags every command that opens the event log
// accepts.
func EnvironmentFlags() []cli.Flag {
	return append([]cli.Flag{ConfigFlag, VerboseFlag}, StorageFlags()...)
}
