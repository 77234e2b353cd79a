package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/strata/store"
	"github.com/justapithecus/strata/types"
)

// DB is the subset of *sql.DB the log needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	createSchemaQuery = `CREATE TABLE IF NOT EXISTS strata_asset_events (
		id            BIGSERIAL PRIMARY KEY,
		record_kind   TEXT        NOT NULL,
		asset_key     TEXT        NOT NULL,
		partition_key TEXT        NOT NULL DEFAULT '',
		run_id        TEXT        NOT NULL,
		tags          JSONB       NOT NULL DEFAULT '{}'::jsonb,
		recorded_at   TIMESTAMPTZ NOT NULL
	)`

	createIndexQuery = `CREATE INDEX IF NOT EXISTS strata_asset_events_lookup
		ON strata_asset_events (record_kind, asset_key, partition_key, id DESC)`

	insertEventQuery = `INSERT INTO strata_asset_events (
		record_kind,
		asset_key,
		partition_key,
		run_id,
		tags,
		recorded_at
	) VALUES ($1,$2,$3,$4,$5,$6)`

	selectLatestQuery = `SELECT record_kind, asset_key, partition_key, run_id, tags, recorded_at
	 FROM strata_asset_events
	 WHERE record_kind = $1 AND asset_key = $2 AND partition_key = $3
	 ORDER BY id DESC
	 LIMIT 1`

	selectLatestAnyPartitionQuery = `SELECT record_kind, asset_key, partition_key, run_id, tags, recorded_at
	 FROM strata_asset_events
	 WHERE record_kind = $1 AND asset_key = $2
	 ORDER BY id DESC
	 LIMIT 1`
)

// Log is a store.Log backed by the strata_asset_events table.
// Latest-wins order is the serial id, which follows commit order of appends.
type Log struct {
	db     DB
	closer func() error
}

// NewLog wraps an existing connection. Close does not close db.
func NewLog(db DB) (*Log, error) {
	if db == nil {
		return nil, errors.New("postgres log requires a database handle")
	}
	return &Log{db: db, closer: func() error { return nil }}, nil
}

// Open connects with cfg and ensures the schema exists. Close releases the pool.
func Open(ctx context.Context, cfg Config) (*Log, error) {
	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	l := &Log{db: db, closer: db.Close}
	if err := l.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// EnsureSchema creates the events table and lookup index if missing.
func (l *Log) EnsureSchema(ctx context.Context) error {
	for _, q := range []string{createSchemaQuery, createIndexQuery} {
		if _, err := l.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Append inserts the record.
func (l *Log) Append(ctx context.Context, record *types.AssetRecord) error {
	if l == nil || l.db == nil {
		return errors.New("postgres log not initialized")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	tags, err := encodeTags(record.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = l.db.ExecContext(
		ctx,
		insertEventQuery,
		string(record.Kind),
		record.AssetKey.String(),
		record.PartitionKey,
		record.RunID,
		tags,
		normalizeTime(record.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Latest returns the newest record of kind for the asset partition.
func (l *Log) Latest(ctx context.Context, kind types.RecordKind, key types.AssetKey, partition string) (*types.AssetRecord, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("postgres log not initialized")
	}
	row := l.db.QueryRowContext(ctx, selectLatestQuery, string(kind), key.String(), partition)
	return scanRecord(row)
}

// LatestAnyPartition returns the newest record of kind for the asset.
func (l *Log) LatestAnyPartition(ctx context.Context, kind types.RecordKind, key types.AssetKey) (*types.AssetRecord, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("postgres log not initialized")
	}
	row := l.db.QueryRowContext(ctx, selectLatestAnyPartitionQuery, string(kind), key.String())
	return scanRecord(row)
}

// Close releases the pool when the log owns it.
func (l *Log) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer()
}

func scanRecord(row *sql.Row) (*types.AssetRecord, error) {
	var (
		kind, assetKey, partition, runID string
		rawTags                          []byte
		recordedAt                       time.Time
	)
	if err := row.Scan(&kind, &assetKey, &partition, &runID, &rawTags, &recordedAt); err != nil {
		return nil, handleNotFound(err)
	}
	key, err := types.ParseAssetKey(assetKey)
	if err != nil {
		return nil, fmt.Errorf("decode asset_key: %w", err)
	}
	tags, err := decodeTags(rawTags)
	if err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &types.AssetRecord{
		Kind:         types.RecordKind(kind),
		AssetKey:     key,
		PartitionKey: partition,
		RunID:        runID,
		Tags:         tags,
		Timestamp:    recordedAt.UTC(),
	}, nil
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNoRecord
	}
	return err
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func encodeTags(tags map[string]string) ([]byte, error) {
	if tags == nil {
		tags = map[string]string{}
	}
	return json.Marshal(tags)
}

func decodeTags(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

var _ store.Log = (*Log)(nil)
