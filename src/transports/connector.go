package transports

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// -----------------------------------------------------------------------------

// DefaultConnectTimeout bounds the TCP connect only; later stages run without it.
const DefaultConnectTimeout = 5 * time.Second

// -----------------------------------------------------------------------------

// Connector opens the raw TCP stream.
type Connector struct {
	Timeout time.Duration
}

// -----------------------------------------------------------------------------

// Connect tries each candidate in order and returns the first stream that
// opens. When every candidate fails, the last failure is returned as a
// *ConnectError.
func (c *Connector) Connect(ctx context.Context, addrs []string) (net.Conn, error) {
	if len(addrs) == 0 {
		return nil, &ConnectError{Kind: ConnectUnreachable, Err: errors.New("no candidate address")}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}

	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = &ConnectError{Kind: classifyConnectError(err), Address: addr, Err: err}

		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// -----------------------------------------------------------------------------

func classifyConnectError(err error) ConnectErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ConnectTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ConnectTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return ConnectRefused
	default:
		return ConnectUnreachable
	}
}
