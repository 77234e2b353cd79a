package reader

import (
	"fmt"
	"strings"

	"github.com/justapithecus/strata/types"
)

// ParseAssetRef parses "a/b" or "a/b[partition]", the form used in logs and
// cause listings.
func ParseAssetRef(ref string) (types.AssetKey, string, error) {
	keyPart, partition := ref, ""
	if open := strings.IndexByte(ref, '['); open >= 0 {
		if !strings.HasSuffix(ref, "]") {
			return types.AssetKey{}, "", fmt.Errorf("invalid asset reference %q: missing ']'", ref)
		}
		keyPart, partition = ref[:open], ref[open+1:len(ref)-1]
		if partition == "" {
			return types.AssetKey{}, "", fmt.Errorf("invalid asset reference %q: empty partition", ref)
		}
	}
	key, err := types.ParseAssetKey(keyPart)
	if err != nil {
		return types.AssetKey{}, "", fmt.Errorf("invalid asset reference %q: %w", ref, err)
	}
	return key, partition, nil
}

// Summarize counts statuses.
func Summarize(items []AssetStatusResponse) StatusSummary {
	s := StatusSummary{Total: len(items)}
	for _, it := range items {
		switch types.StaleStatus(it.Status) {
		case types.StatusFresh:
			s.Fresh++
		case types.StatusStale:
			s.Stale++
		case types.StatusMissing:
			s.Missing++
		}
	}
	return s
}
