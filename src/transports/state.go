package transports

// -----------------------------------------------------------------------------

// State is a step of the connection state machine. Transitions only move
// forward: Idle → Resolving → Connecting → TLSHandshaking → WSHandshaking →
// Open → Closing → Closed, and any setup stage may jump to Closing or Closed.
type State int32

const (
	StateIdle State = iota
	StateResolving
	StateConnecting
	StateTLSHandshaking
	StateWSHandshaking
	StateOpen
	StateClosing
	StateClosed
)

// -----------------------------------------------------------------------------

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateTLSHandshaking:
		return "tls-handshaking"
	case StateWSHandshaking:
		return "ws-handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// settingUp reports whether s is one of the pipeline stages.
func (s State) settingUp() bool {
	return s >= StateResolving && s <= StateWSHandshaking
}
