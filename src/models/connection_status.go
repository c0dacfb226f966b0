package models

// -----------------------------------------------------------------------------

// MConnectionStatus represents the runtime status of one monitored endpoint.
// It aggregates information from the protocol codec and the connection client.
type MConnectionStatus struct {
	SourceName       string // The name of the endpoint
	Running          bool   // From IConnectionClient.IsRunning()
	State            string // Connection state machine state, e.g. "open"
	Protocol         string // e.g., "raw", "stomp" (from IProtocol.GetName())
	TransportType    string // e.g., "websocket" (from IConnectionClient.GetType())
	Endpoint         string // e.g., "wss://ltnm.learncppthroughprojects.com:443/network-events"
	MessagesReceived uint64
	MessagesSent     uint64
	LastError        string
}
