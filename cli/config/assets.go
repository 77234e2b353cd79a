package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/strata/graph"
	"github.com/justapithecus/strata/types"
)

// Partition definition types.
const (
	PartitionsDaily  = "daily"
	PartitionsStatic = "static"
)

// Partition mapping names.
const (
	MappingIdentity   = "identity"
	MappingAll        = "all"
	MappingLast       = "last"
	MappingTimeWindow = "time_window"
)

// AssetConfig declares one asset.
type AssetConfig struct {
	// Key is the user string form, e.g. "warehouse/orders".
	Key string `yaml:"key"`
	// CodeVersion is absent when not declared. An empty string is a declared version.
	CodeVersion *string            `yaml:"code_version"`
	Source      bool               `yaml:"source"`
	Description string             `yaml:"description,omitempty"`
	Partitions  *PartitionsConfig  `yaml:"partitions,omitempty"`
	Deps        []DependencyConfig `yaml:"deps,omitempty"`
}

// PartitionsConfig declares an asset's partitions.
type PartitionsConfig struct {
	// Type is daily or static.
	Type string `yaml:"type"`
	// Start is the first day (YYYY-MM-DD) of daily partitions.
	Start string `yaml:"start,omitempty"`
	// Keys lists static partitions.
	Keys []string `yaml:"keys,omitempty"`
}

// DependencyConfig is one upstream edge. A bare string is shorthand for a
// dependency with the default mapping.
type DependencyConfig struct {
	Key string `yaml:"key"`
	// Mapping is identity, all, last or time_window. Empty picks the default.
	Mapping     string `yaml:"mapping,omitempty"`
	StartOffset int    `yaml:"start_offset,omitempty"`
	EndOffset   int    `yaml:"end_offset,omitempty"`
}

// UnmarshalYAML accepts either "upstream/key" or a mapping node.
func (d *DependencyConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Key = value.Value
		return nil
	}
	type plain DependencyConfig
	return value.Decode((*plain)(d))
}

// Definitions converts the asset section into graph definitions.
func (c *Config) Definitions() ([]graph.AssetDefinition, error) {
	defs := make([]graph.AssetDefinition, 0, len(c.Assets))
	var errs []error
	for i, ac := range c.Assets {
		def, err := ac.definition()
		if err != nil {
			errs = append(errs, fmt.Errorf("assets[%d] (%s): %w", i, ac.Key, err))
			continue
		}
		defs = append(defs, def)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return defs, nil
}

// Graph builds and validates the asset graph.
func (c *Config) Graph(opts ...graph.Option) (*graph.Graph, error) {
	if len(c.Assets) == 0 {
		return nil, errors.New("no assets defined")
	}
	defs, err := c.Definitions()
	if err != nil {
		return nil, err
	}
	return graph.New(defs, opts...)
}

func (ac AssetConfig) definition() (graph.AssetDefinition, error) {
	key, err := types.ParseAssetKey(ac.Key)
	if err != nil {
		return graph.AssetDefinition{}, fmt.Errorf("invalid key: %w", err)
	}
	def := graph.AssetDefinition{
		Key:         key,
		CodeVersion: ac.CodeVersion,
		Source:      ac.Source,
		Description: ac.Description,
	}
	if ac.Partitions != nil {
		parts, err := ac.Partitions.definition()
		if err != nil {
			return graph.AssetDefinition{}, err
		}
		def.Partitions = parts
	}
	for _, dc := range ac.Deps {
		dep, err := dc.dependency()
		if err != nil {
			return graph.AssetDefinition{}, err
		}
		def.Dependencies = append(def.Dependencies, dep)
	}
	return def, nil
}

func (pc PartitionsConfig) definition() (graph.PartitionsDefinition, error) {
	switch pc.Type {
	case PartitionsDaily:
		start, err := time.Parse(graph.DateLayout, pc.Start)
		if err != nil {
			return nil, fmt.Errorf("daily partitions: invalid start %q: %w", pc.Start, err)
		}
		return graph.DailyPartitions(start), nil
	case PartitionsStatic:
		if len(pc.Keys) == 0 {
			return nil, errors.New("static partitions require keys")
		}
		return graph.StaticPartitions(pc.Keys...), nil
	default:
		return nil, fmt.Errorf("unknown partitions type %q", pc.Type)
	}
}

func (dc DependencyConfig) dependency() (graph.Dependency, error) {
	key, err := types.ParseAssetKey(dc.Key)
	if err != nil {
		return graph.Dependency{}, fmt.Errorf("invalid dependency key: %w", err)
	}
	dep := graph.Dependency{Key: key}
	switch dc.Mapping {
	case "":
	case MappingIdentity:
		dep.Mapping = graph.IdentityMapping{}
	case MappingAll:
		dep.Mapping = graph.AllPartitionsMapping{}
	case MappingLast:
		dep.Mapping = graph.LastPartitionMapping{}
	case MappingTimeWindow:
		if dc.StartOffset > dc.EndOffset {
			return graph.Dependency{}, fmt.Errorf("time_window mapping on %s: start_offset %d > end_offset %d", dc.Key, dc.StartOffset, dc.EndOffset)
		}
		dep.Mapping = graph.TimeWindowMapping{StartOffset: dc.StartOffset, EndOffset: dc.EndOffset}
	default:
		return graph.Dependency{}, fmt.Errorf("unknown mapping %q on %s", dc.Mapping, dc.Key)
	}
	return dep, nil
}
