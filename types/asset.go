// Package types defines the core domain types for strata: asset keys,
// logical versions, provenance, event log records and staleness verdicts.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// keySeparator joins asset key segments in the user-facing string form.
const keySeparator = "/"

// AssetKey identifies an asset by an ordered path of string segments.
// The zero value is not a valid key. AssetKey is comparable and may be
// used as a map key; equality is structural.
type AssetKey struct {
	joined string
}

// NewAssetKey builds a key from its path segments.
// Segments must be non-empty and must not contain "/".
func NewAssetKey(segments ...string) (AssetKey, error) {
	if len(segments) == 0 {
		return AssetKey{}, errors.New("asset key must have at least one segment")
	}
	for i, s := range segments {
		if s == "" {
			return AssetKey{}, fmt.Errorf("asset key segment %d is empty", i)
		}
		if strings.Contains(s, keySeparator) {
			return AssetKey{}, fmt.Errorf("asset key segment %q must not contain %q", s, keySeparator)
		}
	}
	return AssetKey{joined: strings.Join(segments, keySeparator)}, nil
}

// MustAssetKey is NewAssetKey for statically known keys. It panics on invalid input.
func MustAssetKey(segments ...string) AssetKey {
	k, err := NewAssetKey(segments...)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseAssetKey parses the user string form ("a/b/c") produced by String.
func ParseAssetKey(s string) (AssetKey, error) {
	if s == "" {
		return AssetKey{}, errors.New("asset key must be non-empty")
	}
	return NewAssetKey(strings.Split(s, keySeparator)...)
}

// Path returns a copy of the key's segments.
func (k AssetKey) Path() []string {
	if k.joined == "" {
		return nil
	}
	return strings.Split(k.joined, keySeparator)
}

// String returns the user string form, segments joined by "/".
func (k AssetKey) String() string {
	return k.joined
}

// IsZero reports whether k is the zero (invalid) key.
func (k AssetKey) IsZero() bool {
	return k.joined == ""
}

// Compare orders keys segment by segment. It returns -1, 0 or +1.
func (k AssetKey) Compare(other AssetKey) int {
	return slices.Compare(k.Path(), other.Path())
}

// MarshalText implements encoding.TextMarshaler.
func (k AssetKey) MarshalText() ([]byte, error) {
	return []byte(k.joined), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AssetKey) UnmarshalText(text []byte) error {
	parsed, err := ParseAssetKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SortAssetKeys sorts keys in place by Compare.
func SortAssetKeys(keys []AssetKey) {
	slices.SortFunc(keys, AssetKey.Compare)
}
