package config

import (
	"errors"
	"fmt"
	"time"
)

// Storage backends.
const (
	BackendFS       = "fs"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Adapter types.
const (
	AdapterWebhook = "webhook"
	AdapterRedis   = "redis"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "strata.yaml"

// Config represents a strata.yaml configuration file.
// Storage and adapter values act as defaults for command flags; CLI flags
// always override them. Assets define the graph every command works on.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Adapter AdapterConfig `yaml:"adapter"`
	Assets  []AssetConfig `yaml:"assets"`
}

// StorageConfig selects and configures the event log backend.
type StorageConfig struct {
	// Backend is fs (default), s3, postgres or memory.
	Backend string `yaml:"backend"`
	// Dataset names the Lode dataset (fs, s3, memory).
	Dataset string `yaml:"dataset"`
	// Path is a directory (fs) or bucket/prefix (s3).
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url"`
}

// AdapterConfig configures the notification adapter. Empty Type disables it.
type AdapterConfig struct {
	Type             string            `yaml:"type"`
	URL              string            `yaml:"url"`
	Channel          string            `yaml:"channel,omitempty"`
	PerAssetChannels bool              `yaml:"per_asset_channels,omitempty"`
	Headers          map[string]string `yaml:"headers,omitempty"`
	Secret           string            `yaml:"secret,omitempty"`
	Timeout          Duration          `yaml:"timeout,omitempty"`
	Retries          *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Validate checks backend and adapter selections. Asset definitions are
// validated when the graph is built.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case "", BackendFS, BackendS3, BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	switch c.Adapter.Type {
	case "":
	case AdapterWebhook, AdapterRedis:
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for the %s adapter", c.Adapter.Type))
		}
		if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
			errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adapter.type %q", c.Adapter.Type))
	}
	return errors.Join(errs...)
}
