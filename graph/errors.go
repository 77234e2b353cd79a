package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/strata/types"
)

var (
	// ErrInvalidGraph is returned when asset definitions are inconsistent.
	ErrInvalidGraph = errors.New("invalid asset graph")
	// ErrCycle is returned when dependencies form a cycle.
	ErrCycle = errors.New("dependency cycle detected")
	// ErrUnknownAsset is returned when a key is not part of the graph.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrUnknownPartition is returned when a partition key is not defined for an asset.
	ErrUnknownPartition = errors.New("unknown partition")
)

// GraphError wraps a deterministic graph failure with detail.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

// CycleError builds an ErrCycle error from a witness path.
func CycleError(path []string) error {
	msg := ""
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycle, Msg: msg}
}

// UnknownAssetError builds an ErrUnknownAsset error for key.
func UnknownAssetError(key types.AssetKey) error {
	return &GraphError{Kind: ErrUnknownAsset, Msg: key.String()}
}

// UnknownPartitionError builds an ErrUnknownPartition error for partition of key.
func UnknownPartitionError(key types.AssetKey, partition string) error {
	return &GraphError{Kind: ErrUnknownPartition, Msg: fmt.Sprintf("%s[%s]", key, partition)}
}
