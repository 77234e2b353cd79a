// Package runtime records executions against the asset event log.
//
// The Materializer is the execution-result boundary: it resolves the
// current versions of each output's inputs, stamps the output, appends the
// record and notifies downstream systems. It does not run user code.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/strata/adapter"
	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/log"
	"github.com/justapithecus/strata/metrics"
	"github.com/justapithecus/strata/store"
	"github.com/justapithecus/strata/types"
	"github.com/justapithecus/strata/version"
)

// ErrSourceAsset is returned when materializing a source asset.
var ErrSourceAsset = errors.New("source assets are observed, not materialized")

// ErrNotSource is returned when observing an asset that is not a source.
var ErrNotSource = errors.New("only source assets can be observed")

// Config configures a Materializer.
type Config struct {
	// Graph is the asset graph (required).
	Graph *graph.Graph
	// Log is the event log records are read from and appended to (required).
	Log store.Log
	// Adapter receives a notification per appended record.
	// If nil, no notifications are sent.
	Adapter adapter.Adapter
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Collector is optional; all Collector methods are nil-safe.
	Collector *metrics.Collector
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Output is one asset produced by an execution.
type Output struct {
	Key types.AssetKey
	// Version selects derived or explicit versioning. The zero value derives.
	Version version.OutputVersion
	// Tags are user tags merged under the reserved version tags.
	Tags map[string]string
}

// Request describes one execution.
type Request struct {
	// RunID identifies the execution. Generated when empty.
	RunID string
	// Partition applies to every partitioned output. Ignored for unpartitioned ones.
	Partition string
	// Outputs lists the assets the execution produced.
	Outputs []Output
}

// OutputResult is the stamped record of one output.
type OutputResult struct {
	Key            types.AssetKey
	PartitionKey   string
	LogicalVersion types.LogicalVersion
	Provenance     types.Provenance
	Record         *types.AssetRecord
}

// Result is the outcome of a Materialize call.
type Result struct {
	RunID string
	// Outputs are in the order they were recorded (topological).
	Outputs []OutputResult
	// PublishFailures counts notifications that could not be delivered.
	PublishFailures int
	Duration        time.Duration
}

// Materializer stamps and records executions.
type Materializer struct {
	graph     *graph.Graph
	log       store.Log
	adapter   adapter.Adapter
	stamper   *version.Stamper
	logger    *log.Logger
	collector *metrics.Collector
	clock     func() time.Time
}

// NewMaterializer creates a materializer.
func NewMaterializer(cfg Config) (*Materializer, error) {
	if cfg.Graph == nil {
		return nil, errors.New("materializer requires a graph")
	}
	if cfg.Log == nil {
		return nil, errors.New("materializer requires a log")
	}
	m := &Materializer{
		graph:     cfg.Graph,
		log:       cfg.Log,
		adapter:   cfg.Adapter,
		stamper:   version.NewStamper(cfg.Collector),
		logger:    cfg.Logger,
		collector: cfg.Collector,
		clock:     cfg.Clock,
	}
	if m.logger == nil {
		m.logger = log.NewNop()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m, nil
}

// planned is a validated output with its normalized partition.
type planned struct {
	out       Output
	def       graph.AssetDefinition
	partition string
}

// Materialize records every output of one execution. Outputs are recorded in
// topological order so that later outputs see the versions of earlier ones.
// A failure to append stops the run; outputs recorded before it remain.
func (m *Materializer) Materialize(ctx context.Context, req Request) (*Result, error) {
	start := m.clock()
	plan, err := m.plan(req)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := m.logger.WithRun(runID)
	logger.Info("materializing", map[string]any{
		"outputs":   len(plan),
		"partition": req.Partition,
	})

	result := &Result{RunID: runID}
	for _, p := range plan {
		inputs, err := m.inputVersions(ctx, p.out.Key, p.partition)
		if err != nil {
			return result, err
		}

		stamp := m.stamper.Stamp(version.StampInput{
			CodeVersion:          p.def.CodeVersion,
			InputLogicalVersions: inputs,
			RunID:                runID,
			Output:               p.out.Version,
		})

		rec := &types.AssetRecord{
			Kind:         types.RecordMaterialization,
			AssetKey:     p.out.Key,
			PartitionKey: p.partition,
			RunID:        runID,
			Tags:         maps.Clone(p.out.Tags),
			Timestamp:    m.clock(),
		}
		stamp.Apply(rec)

		if err := m.log.Append(ctx, rec); err != nil {
			return result, fmt.Errorf("append materialization of %s: %w", p.out.Key, err)
		}
		m.collector.IncMaterialization()
		logger.WithAsset(p.out.Key.String(), p.partition).Debug("recorded materialization", map[string]any{
			"logical_version": string(stamp.LogicalVersion),
			"explicit":        p.out.Version.IsExplicit(),
		})

		if !m.publish(ctx, logger, rec, stamp.LogicalVersion, stamp.Provenance.CodeVersion) {
			result.PublishFailures++
		}
		result.Outputs = append(result.Outputs, OutputResult{
			Key:            p.out.Key,
			PartitionKey:   p.partition,
			LogicalVersion: stamp.LogicalVersion,
			Provenance:     stamp.Provenance,
			Record:         rec,
		})
	}

	result.Duration = m.clock().Sub(start)
	return result, nil
}

// plan validates the request and orders its outputs topologically.
func (m *Materializer) plan(req Request) ([]planned, error) {
	if len(req.Outputs) == 0 {
		return nil, errors.New("request has no outputs")
	}

	byKey := make(map[types.AssetKey]planned, len(req.Outputs))
	for _, out := range req.Outputs {
		def, err := m.graph.Get(out.Key)
		if err != nil {
			return nil, err
		}
		if def.Source {
			return nil, fmt.Errorf("%s: %w", out.Key, ErrSourceAsset)
		}
		if _, dup := byKey[out.Key]; dup {
			return nil, fmt.Errorf("duplicate output %s", out.Key)
		}
		partition, err := m.partitionFor(def, req.Partition)
		if err != nil {
			return nil, err
		}
		byKey[out.Key] = planned{out: out, def: def, partition: partition}
	}

	ordered := make([]planned, 0, len(byKey))
	for _, key := range m.graph.TopologicalOrder() {
		if p, ok := byKey[key]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// partitionFor normalizes partition for def.
func (m *Materializer) partitionFor(def graph.AssetDefinition, partition string) (string, error) {
	if !def.IsPartitioned() {
		return "", nil
	}
	if partition == "" {
		return "", fmt.Errorf("partitioned asset %s requires a partition", def.Key)
	}
	if !def.Partitions.Has(partition, m.graph.Now()) {
		return "", graph.UnknownPartitionError(def.Key, partition)
	}
	return partition, nil
}

// inputVersions reads the current version of every upstream partition the
// output consumes. Dependencies mapped to no partition are omitted; several
// partitions are combined into one version.
func (m *Materializer) inputVersions(ctx context.Context, key types.AssetKey, partition string) (map[types.AssetKey]types.LogicalVersion, error) {
	deps, err := m.graph.Dependencies(key)
	if err != nil {
		return nil, err
	}

	inputs := make(map[types.AssetKey]types.LogicalVersion, len(deps))
	for _, dep := range deps {
		parts, err := m.graph.UpstreamPartitions(key, dep, partition)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}

		versions := make(map[string]types.LogicalVersion, len(parts))
		for _, p := range parts {
			lv, err := m.currentVersion(ctx, dep.Key, p)
			if err != nil {
				return nil, err
			}
			versions[p] = lv
		}
		if len(parts) == 1 {
			inputs[dep.Key] = versions[parts[0]]
		} else {
			inputs[dep.Key] = version.CombinePartitionVersions(versions)
		}
	}
	return inputs, nil
}

// currentVersion returns the latest logical version of an upstream partition,
// or the default version when it has none.
func (m *Materializer) currentVersion(ctx context.Context, key types.AssetKey, partition string) (types.LogicalVersion, error) {
	def, err := m.graph.Get(key)
	if err != nil {
		return "", err
	}
	kind := types.RecordMaterialization
	if def.Source {
		kind = types.RecordObservation
	}

	rec, err := m.log.Latest(ctx, kind, key, partition)
	if errors.Is(err, store.ErrNoRecord) {
		return types.DefaultLogicalVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("read latest %s of %s: %w", kind, key, err)
	}
	if lv, ok := version.ExtractLogicalVersion(rec.Tags); ok {
		return lv, nil
	}
	return types.DefaultLogicalVersion, nil
}

// Observe records the current version of a source asset.
func (m *Materializer) Observe(ctx context.Context, key types.AssetKey, partition string, lv types.LogicalVersion) (*types.AssetRecord, error) {
	def, err := m.graph.Get(key)
	if err != nil {
		return nil, err
	}
	if !def.Source {
		return nil, fmt.Errorf("%s: %w", key, ErrNotSource)
	}
	if lv == "" {
		return nil, errors.New("observation requires a logical version")
	}
	partition, err = m.partitionFor(def, partition)
	if err != nil {
		return nil, err
	}

	rec := &types.AssetRecord{
		Kind:         types.RecordObservation,
		AssetKey:     key,
		PartitionKey: partition,
		RunID:        uuid.NewString(),
		Tags:         map[string]string{version.LogicalVersionTag: string(lv)},
		Timestamp:    m.clock(),
	}
	if err := m.log.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append observation of %s: %w", key, err)
	}
	m.collector.IncObservation()

	logger := m.logger.WithRun(rec.RunID)
	logger.WithAsset(key.String(), partition).Info("recorded observation", map[string]any{
		"logical_version": string(lv),
	})
	m.publish(ctx, logger, rec, lv, nil)
	return rec, nil
}

// publish notifies the adapter. Failures are logged and counted, never returned.
func (m *Materializer) publish(ctx context.Context, logger *log.Logger, rec *types.AssetRecord, lv types.LogicalVersion, codeVersion *string) bool {
	if m.adapter == nil {
		return true
	}
	if err := m.adapter.Publish(ctx, adapter.NewAssetEvent(rec, lv, codeVersion)); err != nil {
		m.collector.IncAdapterPublishFailure()
		logger.Warn("notification failed", map[string]any{
			"asset_key": rec.AssetKey.String(),
			"error":     err.Error(),
		})
		return false
	}
	m.collector.IncAdapterPublishSuccess()
	return true
}
