// Package version computes logical versions and stamps provenance onto
// asset records before they are written to the event log.
//
// A derived logical version is a SHA-256 digest over a canonical msgpack
// encoding of two things: the code identity and the upstream versions
// sorted by asset key. Identical pairs always yield identical versions.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/strata/types"
)

// Code identity kinds. Each kind is hashed alongside its value so a
// declared code version can never collide with the absent marker or a run ID.
const (
	codeDeclared = "declared"
	codeAbsent   = "absent"
	codeRun      = "run"
)

// formPartitions tags the canonical form of combined partition versions.
const formPartitions = "partitions"

// ComputeLogicalVersion derives the logical version for a code version and
// the upstream versions it consumed. A nil code version hashes as a fixed
// absent marker.
func ComputeLogicalVersion(codeVersion *string, inputs map[types.AssetKey]types.LogicalVersion) types.LogicalVersion {
	if codeVersion == nil {
		return digest(codeAbsent, "", inputs)
	}
	return digest(codeDeclared, *codeVersion, inputs)
}

// computeForRun derives the version of an unversioned asset. The run ID
// stands in for the missing code version.
func computeForRun(runID string, inputs map[types.AssetKey]types.LogicalVersion) types.LogicalVersion {
	return digest(codeRun, runID, inputs)
}

// CombinePartitionVersions folds the versions of several upstream partitions
// consumed together into one deterministic version.
func CombinePartitionVersions(versions map[string]types.LogicalVersion) types.LogicalVersion {
	h := sha256.New()
	enc := newEncoder(h)

	partitions := slices.Sorted(maps.Keys(versions))
	_ = enc.EncodeArrayLen(3)
	_ = enc.EncodeString(types.TagContractVersion)
	_ = enc.EncodeString(formPartitions)
	_ = enc.EncodeArrayLen(len(partitions))
	for _, p := range partitions {
		_ = enc.EncodeArrayLen(2)
		_ = enc.EncodeString(p)
		_ = enc.EncodeString(string(versions[p]))
	}

	return types.LogicalVersion(hex.EncodeToString(h.Sum(nil)))
}

// digest hashes the canonical form [contract, [kind, value], [[path, version]...]].
// Encoder errors are ignored: writes to a hash.Hash never fail.
func digest(kind, value string, inputs map[types.AssetKey]types.LogicalVersion) types.LogicalVersion {
	h := sha256.New()
	enc := newEncoder(h)

	keys := slices.SortedFunc(maps.Keys(inputs), types.AssetKey.Compare)

	_ = enc.EncodeArrayLen(3)
	_ = enc.EncodeString(types.TagContractVersion)

	_ = enc.EncodeArrayLen(2)
	_ = enc.EncodeString(kind)
	_ = enc.EncodeString(value)

	_ = enc.EncodeArrayLen(len(keys))
	for _, k := range keys {
		path := k.Path()
		_ = enc.EncodeArrayLen(2)
		_ = enc.EncodeArrayLen(len(path))
		for _, seg := range path {
			_ = enc.EncodeString(seg)
		}
		_ = enc.EncodeString(string(inputs[k]))
	}

	return types.LogicalVersion(hex.EncodeToString(h.Sum(nil)))
}

func newEncoder(h hash.Hash) *msgpack.Encoder {
	enc := msgpack.NewEncoder(h)
	enc.UseCompactInts(true)
	return enc
}
