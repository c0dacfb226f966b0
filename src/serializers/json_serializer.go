package serializers

import (
	"encoding/json"
	"fmt"

	"network-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------

// JSONSerializer encodes network events and layout files as JSON.
type JSONSerializer struct{}

// -----------------------------------------------------------------------------

// NewJSONSerializer creates a new instance of the JSON serializer.
func NewJSONSerializer() interfaces.ISerializer {
	return &JSONSerializer{}
}

// -----------------------------------------------------------------------------

// Marshal converts the object to a JSON byte array.
func (j *JSONSerializer) Marshal(obj any) ([]byte, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("json marshal error: %w", err)
	}
	return data, nil
}

// -----------------------------------------------------------------------------

// Unmarshal decodes data into obj. Empty input is an error rather than a no-op
// so that truncated downloads are noticed.
func (j *JSONSerializer) Unmarshal(data []byte, obj any) error {
	if len(data) == 0 {
		return fmt.Errorf("json unmarshal error: empty input")
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("json unmarshal error: %w", err)
	}
	return nil
}
