// Package redis publishes asset events over Redis pub/sub.
//
// Events are JSON documents sent to a configurable channel. Subscribers
// typically key their caches on asset_key and logical_version.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/strata/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "strata:asset_events"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis pub/sub adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: strata:asset_events).
	Channel string
	// PerAssetChannels additionally publishes to "<Channel>:<asset key>".
	PerAssetChannels bool
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes asset events via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis pub/sub adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Channels returns the channels an event is published to.
func (a *Adapter) Channels(event *adapter.AssetEvent) []string {
	channels := []string{a.config.Channel}
	if a.config.PerAssetChannels {
		channels = append(channels, a.config.Channel+":"+event.AssetKey)
	}
	return channels
}

// Publish sends the event as JSON to every channel it belongs to.
func (a *Adapter) Publish(ctx context.Context, event *adapter.AssetEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	for _, channel := range a.Channels(event) {
		_, err := adapter.Retry(ctx, a.config.Retries, func(ctx context.Context) error {
			publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
			defer cancel()
			return a.client.Publish(publishCtx, channel, body).Err()
		}, isClosed)
		if err != nil {
			return fmt.Errorf("redis: publish to %s: %w", channel, err)
		}
	}
	return nil
}

func isClosed(err error) bool {
	return errors.Is(err, goredis.ErrClosed)
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
