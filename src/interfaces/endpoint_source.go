package interfaces

import "network-monitor/src/models"

// -----------------------------------------------------------------------------

// IEndpointSource manages a single monitored connection
type IEndpointSource interface {
	GetName() string
	Start() error
	Stop() error
	Send(payload string) error
	GetStatus() *models.MConnectionStatus
}
