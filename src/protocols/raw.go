package protocols

import (
	"fmt"
	"time"

	"network-monitor/src/interfaces"
	"network-monitor/src/models"
)

// -----------------------------------------------------------------------------

// Raw passes payloads through untouched: no handshake, every message is an
// EventKindMessage.
type Raw struct {
	Endpoint *models.MEndpointConfig
}

// -----------------------------------------------------------------------------

func init() {
	if err := Register("raw", NewRaw); err != nil {
		fmt.Printf("Error registering raw protocol: %v\n", err)
	}
}

// -----------------------------------------------------------------------------

// NewRaw creates the pass-through protocol.
func NewRaw(endpoint *models.MEndpointConfig) (interfaces.IProtocol, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("raw: endpoint config is nil")
	}
	return &Raw{Endpoint: endpoint}, nil
}

// -----------------------------------------------------------------------------

// GetName returns the protocol name.
func (r *Raw) GetName() string {
	return "raw"
}

// -----------------------------------------------------------------------------

// Handshake reports that raw connections send nothing on open.
func (r *Raw) Handshake() (string, bool) {
	return "", false
}

// -----------------------------------------------------------------------------

// ParseMessage wraps the payload in a message event without inspecting it.
func (r *Raw) ParseMessage(payload string) (*models.MNetworkEvent, error) {
	return &models.MNetworkEvent{
		Source:     r.Endpoint.Name,
		Protocol:   r.GetName(),
		Kind:       models.EventKindMessage,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}, nil
}
