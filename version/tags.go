package version

import (
	"strings"

	"github.com/justapithecus/strata/types"
)

// Reserved tag keys written onto every stamped record.
const (
	// LogicalVersionTag holds the record's logical version.
	LogicalVersionTag = "strata/logical_version"
	// CodeVersionTag holds the declared code version. Absent when none was declared.
	CodeVersionTag = "strata/code_version"
	// InputLogicalVersionTagPrefix namespaces one provenance entry per upstream asset.
	InputLogicalVersionTagPrefix = "strata/input_logical_version"
)

// InputTagKey returns the provenance tag key for an upstream asset.
func InputTagKey(upstream types.AssetKey) string {
	return InputLogicalVersionTagPrefix + "/" + upstream.String()
}

// ExtractLogicalVersion reads the logical version tag.
func ExtractLogicalVersion(tags map[string]string) (types.LogicalVersion, bool) {
	v, ok := tags[LogicalVersionTag]
	if !ok {
		return "", false
	}
	return types.LogicalVersion(v), true
}

// ExtractCodeVersion reads the code version tag. Nil when absent.
func ExtractCodeVersion(tags map[string]string) *string {
	v, ok := tags[CodeVersionTag]
	if !ok {
		return nil
	}
	return &v
}

// ExtractProvenance rebuilds the provenance serialized into tags.
// Entries whose key suffix is not a valid asset key are skipped; the
// corresponding upstream then reads as a new input.
func ExtractProvenance(tags map[string]string) types.Provenance {
	prov := types.Provenance{
		CodeVersion:          ExtractCodeVersion(tags),
		InputLogicalVersions: make(map[types.AssetKey]types.LogicalVersion),
	}
	prefix := InputLogicalVersionTagPrefix + "/"
	for k, v := range tags {
		suffix, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		key, err := types.ParseAssetKey(suffix)
		if err != nil {
			continue
		}
		prov.InputLogicalVersions[key] = types.LogicalVersion(v)
	}
	return prov
}

// provenanceTags serializes a logical version and its provenance into tags.
func provenanceTags(lv types.LogicalVersion, prov types.Provenance) map[string]string {
	tags := make(map[string]string, len(prov.InputLogicalVersions)+2)
	tags[LogicalVersionTag] = string(lv)
	if prov.CodeVersion != nil {
		tags[CodeVersionTag] = *prov.CodeVersion
	}
	for k, v := range prov.InputLogicalVersions {
		tags[InputTagKey(k)] = string(v)
	}
	return tags
}
