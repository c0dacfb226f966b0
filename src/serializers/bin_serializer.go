package serializers

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"network-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------

// BinSerializer encodes with encoding/gob. Encode buffers are pooled; the
// returned slice is always a private copy.
type BinSerializer struct {
	buffers sync.Pool
}

// -----------------------------------------------------------------------------

// NewBinSerializer creates a gob serializer backed by a pool of encode buffers.
func NewBinSerializer() interfaces.ISerializer {
	return &BinSerializer{
		buffers: sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}
}

// -----------------------------------------------------------------------------

// Marshal gob-encodes the object into a freshly allocated byte slice.
func (g *BinSerializer) Marshal(obj any) ([]byte, error) {
	buf := g.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer g.buffers.Put(buf)

	if err := gob.NewEncoder(buf).Encode(obj); err != nil {
		return nil, fmt.Errorf("gob marshal error: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// -----------------------------------------------------------------------------

// Unmarshal decodes gob data into obj, which must be a pointer.
func (g *BinSerializer) Unmarshal(data []byte, obj any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(obj); err != nil {
		return fmt.Errorf("gob unmarshal error: %w", err)
	}
	return nil
}
