package serializers

import (
	"fmt"
	"strings"

	"network-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------

// NewSerializer returns the serializer registered under name ("json" or "gob").
// An empty name selects JSON.
func NewSerializer(name string) (interfaces.ISerializer, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewBinSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer: %s", name)
	}
}
