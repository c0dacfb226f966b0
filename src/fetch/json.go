package fetch

import (
	"os"

	"network-monitor/src/serializers"
)

// -----------------------------------------------------------------------------

// ParseJSONFile reads a JSON document into a generic map. A missing file or
// malformed content yields an empty, non-nil map.
func ParseJSONFile(path string) map[string]any {
	out := map[string]any{}

	data, err := os.ReadFile(path)
	if err != nil {
		return out
	}

	var parsed map[string]any
	if err := serializers.NewJSONSerializer().Unmarshal(data, &parsed); err != nil || parsed == nil {
		return out
	}
	return parsed
}
