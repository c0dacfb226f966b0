package transports

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------

var (
	// ErrAborted is wrapped into the setup failure reported when Close
	// interrupts the connection pipeline.
	ErrAborted = errors.New("operation aborted")

	// ErrConnectionClosed is reported to queued sends that never reached the wire.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrInvalidTrustStore is a configuration error: the CA bundle is missing,
	// unreadable or holds no certificate.
	ErrInvalidTrustStore = errors.New("invalid trust store")

	// ErrCloseTimeout is wrapped into a CloseError when the peer never
	// answered the close frame.
	ErrCloseTimeout = errors.New("close handshake timed out")
)

// -----------------------------------------------------------------------------

// ResolveError reports a failed host lookup.
type ResolveError struct {
	Host string
	Port string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s:%s: %v", e.Host, e.Port, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// ConnectErrorKind classifies a failed TCP connect.
type ConnectErrorKind int

const (
	ConnectTimeout ConnectErrorKind = iota
	ConnectRefused
	ConnectUnreachable
)

func (k ConnectErrorKind) String() string {
	switch k {
	case ConnectTimeout:
		return "timeout"
	case ConnectRefused:
		return "refused"
	default:
		return "unreachable"
	}
}

// ConnectError reports a failed TCP connect.
type ConnectError struct {
	Kind    ConnectErrorKind
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s (%s): %v", e.Address, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// TLSErrorKind classifies a failed TLS handshake.
type TLSErrorKind int

const (
	TLSHandshakeFailed TLSErrorKind = iota
	TLSCertInvalid
	TLSHostnameMismatch
)

func (k TLSErrorKind) String() string {
	switch k {
	case TLSCertInvalid:
		return "cert-invalid"
	case TLSHostnameMismatch:
		return "hostname-mismatch"
	default:
		return "handshake-failed"
	}
}

// TLSError reports a failed TLS handshake.
type TLSError struct {
	Kind TLSErrorKind
	Host string
	Err  error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("tls handshake with %s (%s): %v", e.Host, e.Kind, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// WSHandshakeErrorKind classifies a failed upgrade.
type WSHandshakeErrorKind int

const (
	WSBadResponse WSHandshakeErrorKind = iota
	WSRejected
)

func (k WSHandshakeErrorKind) String() string {
	if k == WSRejected {
		return "rejected"
	}
	return "bad-response"
}

// WSHandshakeError reports a failed WebSocket upgrade. StatusCode is set when
// the server answered with a well-formed non-101 response.
type WSHandshakeError struct {
	Kind       WSHandshakeErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *WSHandshakeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("websocket handshake with %s (%s, status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("websocket handshake with %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *WSHandshakeError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// WriteError reports a failed send.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write: %v", e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// ReadError reports the receive failure that ended an open connection.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read: %v", e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// CloseError reports a close handshake that did not complete cleanly.
type CloseError struct {
	Err error
}

func (e *CloseError) Error() string { return fmt.Sprintf("close: %v", e.Err) }

func (e *CloseError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------

// ProtocolStateError reports an operation that is invalid in the current state.
type ProtocolStateError struct {
	Op    string
	State State
}

func (e *ProtocolStateError) Error() string {
	return fmt.Sprintf("%s: invalid in state %s", e.Op, e.State)
}
