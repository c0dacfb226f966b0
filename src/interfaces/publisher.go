package interfaces

import "network-monitor/src/models"

// -----------------------------------------------------------------------------

// IPublisher defines the interface for publishing network events
type IPublisher interface {
	// OnNetworkEvent processes and publishes a received event
	OnNetworkEvent(event *models.MNetworkEvent)

	// Connect establishes connection to the message broker
	Connect() error

	// Disconnect closes the connection to the message broker
	Disconnect() error

	// IsConnected returns the current connection status
	IsConnected() bool
}
