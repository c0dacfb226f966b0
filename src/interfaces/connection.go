package interfaces

// -----------------------------------------------------------------------------

// IConnectionClient defines the interface for asynchronous WebSocket connections.
// Outcomes are reported through callbacks, never returned across goroutines.
type IConnectionClient interface {
	// Connect starts the connection pipeline and returns immediately.
	// onConnect fires exactly once; onDisconnect only if an open connection is lost.
	Connect(onConnect func(error), onMessage func(error, string), onDisconnect func(error)) error

	// Send queues a text frame; onSend reports the write outcome.
	Send(payload string, onSend func(error))

	// Close performs the close handshake; onClose reports completion.
	Close(onClose func(error))

	// Done is closed once the connection is fully torn down
	Done() <-chan struct{}

	// IsRunning returns the connection status
	IsRunning() bool

	// GetState returns the connection state machine state, e.g. "open"
	GetState() string

	// GetName returns the client name
	GetName() string

	// GetType returns the transport type
	GetType() string

	// GetEndpoint returns the target URL
	GetEndpoint() string
}
