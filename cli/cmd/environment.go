package cmd

import (
	"context"
	"fmt"
	"io"

	lodelib "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/adapter/redis"
	"github.com/justapithecus/strata/adapter/webhook"
	"github.com/justapithecus/strata/cli/config"
	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/lode"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/store"
	"github.com/justapithecus/strata/store/postgres"
)

// environment is everything a command needs: the parsed config, the asset
// graph and the opened event log.
type environment struct {
	config    *config.Config
	graph     *graph.Graph
	log       store.Log
	collector *metrics.Collector
	logger    *log.Logger

	closers []io.Closer
}

// loadGraph reads --config and builds the asset graph.
func loadGraph(c *cli.Context) (*config.Config, *graph.Graph, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	g, err := cfg.Graph()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid asset graph in %s: %w", c.String("config"), err)
	}
	return cfg, g, nil
}

// openEnvironment loads the config and opens the event log it selects,
// applying storage flag overrides.
func openEnvironment(c *cli.Context) (*environment, error) {
	cfg, g, err := loadGraph(c)
	if err != nil {
		return nil, err
	}

	sc := storageChoice(c, cfg.Storage)
	logger := log.NewNop()
	if c.Bool("verbose") {
		logger = log.NewLogger("cli")
	}
	collector := metrics.NewCollector(sc.Backend)

	inner, err := openLog(c.Context, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", sc.Backend, err)
	}

	env := &environment{
		config:    cfg,
		graph:     g,
		log:       store.NewInstrumentedLog(inner, collector),
		collector: collector,
		logger:    logger,
	}
	env.closers = append(env.closers, env.log)
	return env, nil
}

// Close releases everything opened for the command and logs the metrics
// collected along the way.
func (e *environment) Close() error {
	s := e.collector.Snapshot()
	e.logger.Debug("command metrics", map[string]any{
		"storage_backend":      s.StorageBackend,
		"log_reads":            s.LogReads,
		"log_read_failures":    s.LogReadFailures,
		"record_writes":        s.RecordWriteSuccess,
		"record_write_failure": s.RecordWriteFailure,
		"resolver_cache_hits":  s.ResolverCacheHits,
		"resolver_cache_miss":  s.ResolverCacheMisses,
	})
	return iox.CloseAll(e.closers...)
}

// openAdapter builds the notification adapter from config. It returns nil
// when none is configured. The adapter is closed with the environment.
func (e *environment) openAdapter() (adapter.Adapter, error) {
	a, err := buildAdapter(e.config.Adapter)
	if err != nil || a == nil {
		return nil, err
	}
	e.closers = append(e.closers, a)
	return a, nil
}

// storageChoice overlays storage flags on the config file's storage section.
func storageChoice(c *cli.Context, sc config.StorageConfig) config.StorageConfig {
	if c.IsSet("storage-backend") {
		sc.Backend = c.String("storage-backend")
	}
	if c.IsSet("storage-path") {
		sc.Path = c.String("storage-path")
	}
	if c.IsSet("storage-dataset") {
		sc.Dataset = c.String("storage-dataset")
	}
	if c.IsSet("s3-region") {
		sc.Region = c.String("s3-region")
	}
	if c.IsSet("s3-endpoint") {
		sc.Endpoint = c.String("s3-endpoint")
	}
	if c.IsSet("s3-path-style") {
		sc.S3PathStyle = c.Bool("s3-path-style")
	}
	if c.IsSet("database-url") {
		sc.DatabaseURL = c.String("database-url")
	}
	if sc.Backend == "" {
		sc.Backend = config.BackendFS
	}
	if sc.Dataset == "" {
		sc.Dataset = lode.DefaultDataset
	}
	return sc
}

// openLog opens the event log for a storage choice.
func openLog(ctx context.Context, sc config.StorageConfig) (store.Log, error) {
	switch sc.Backend {
	case config.BackendFS:
		if sc.Path == "" {
			return nil, fmt.Errorf("--storage-path (or storage.path) is required for the fs backend")
		}
		return lode.NewFSLog(sc.Dataset, sc.Path)

	case config.BackendS3:
		if sc.Path == "" {
			return nil, fmt.Errorf("--storage-path (or storage.path) is required for the s3 backend")
		}
		bucket, prefix := lode.ParseS3Path(sc.Path)
		return lode.NewS3Log(ctx, sc.Dataset, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       sc.Region,
			Endpoint:     sc.Endpoint,
			UsePathStyle: sc.S3PathStyle,
		})

	case config.BackendPostgres:
		if sc.DatabaseURL == "" {
			return nil, fmt.Errorf("--database-url (or storage.database_url) is required for the postgres backend")
		}
		return postgres.Open(ctx, postgres.DefaultConfig(sc.DatabaseURL))

	case config.BackendMemory:
		return lode.NewLog(sc.Dataset, lodelib.NewMemoryFactory())

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be fs, s3, postgres or memory)", sc.Backend)
	}
}

// buildAdapter maps the adapter config section onto an adapter.
func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	switch ac.Type {
	case "":
		return nil, nil

	case config.AdapterRedis:
		cfg := redis.Config{
			URL:              ac.URL,
			Channel:          ac.Channel,
			PerAssetChannels: ac.PerAssetChannels,
			Timeout:          ac.Timeout.Duration,
			Retries:          redis.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return redis.New(cfg)

	case config.AdapterWebhook:
		cfg := webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Secret:  ac.Secret,
			Timeout: ac.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if ac.Retries != nil {
			cfg.Retries = *ac.Retries
		}
		return webhook.New(cfg)

	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be redis or webhook)", ac.Type)
	}
}
