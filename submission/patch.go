package submission

import (
	"encoding/json"
	"strings"
)

// deepMergeJSON applies an RFC 7396-style merge patch: a patch key set to
// null removes the base key (unset-by-null); a patch key holding an object
// recurses; anything else overwrites. Hand-rolled rather than pulled from
// a library — no example repo's own code imports a JSON merge-patch
// package (the pack's few hits are transitive, unused dependencies of
// Kubernetes client libraries), and the algorithm is short enough that
// wrapping one would add a dependency without removing any code.
func deepMergeJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	var baseMap map[string]any
	if len(base) > 0 {
		if err := json.Unmarshal(base, &baseMap); err != nil {
			return nil, err
		}
	}
	if baseMap == nil {
		baseMap = map[string]any{}
	}

	var patchMap map[string]any
	if err := json.Unmarshal(patch, &patchMap); err != nil {
		return nil, err
	}

	merged := deepMerge(baseMap, patchMap)
	return json.Marshal(merged)
}

func deepMerge(dst, patch map[string]any) map[string]any {
	for k, v := range patch {
		if v == nil {
			delete(dst, k)
			continue
		}
		if patchChild, ok := v.(map[string]any); ok {
			if dstChild, ok := dst[k].(map[string]any); ok {
				dst[k] = deepMerge(dstChild, patchChild)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}

func isNullJSON(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
