package interfaces

import (
	"network-monitor/src/models"
)

// -----------------------------------------------------------------------------

// IProtocolConstructor defines the function signature for creating a new IProtocol instance.
type IProtocolConstructor func(endpoint *models.MEndpointConfig) (IProtocol, error)

// -----------------------------------------------------------------------------

// IProtocol encodes the payloads an endpoint expects and decodes what it sends back.
type IProtocol interface {
	// GetName returns the protocol name
	GetName() string

	// Handshake returns the payload to send right after the connection opens, if any
	Handshake() (string, bool)

	// ParseMessage turns a received payload into a network event
	ParseMessage(payload string) (*models.MNetworkEvent, error)
}
