package transports

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------

// WSHandshaker performs the HTTP upgrade over an already established stream
// (plain TCP or TLS).
type WSHandshaker struct {
	Timeout         time.Duration
	ReadBufferSize  int
	WriteBufferSize int
}

// -----------------------------------------------------------------------------

// Handshake upgrades stream for host and path. The dialer never opens a socket
// of its own: both dial hooks hand back the stream built by the earlier stages.
func (h *WSHandshaker) Handshake(ctx context.Context, stream net.Conn, secure bool, host, port, path string) (*websocket.Conn, error) {
	target := EndpointURL(secure, host, port, path)

	reuse := func(context.Context, string, string) (net.Conn, error) {
		return stream, nil
	}
	dialer := websocket.Dialer{
		NetDialContext:    reuse,
		NetDialTLSContext: reuse,
		HandshakeTimeout:  h.Timeout,
		ReadBufferSize:    h.ReadBufferSize,
		WriteBufferSize:   h.WriteBufferSize,
	}

	conn, resp, err := dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		stream.Close()

		hsErr := &WSHandshakeError{Kind: WSBadResponse, URL: target.String(), Err: err}
		if resp != nil {
			hsErr.StatusCode = resp.StatusCode
			if errors.Is(err, websocket.ErrBadHandshake) && resp.StatusCode != http.StatusSwitchingProtocols {
				hsErr.Kind = WSRejected
			}
		}
		return nil, hsErr
	}
	return conn, nil
}

// -----------------------------------------------------------------------------

// EndpointURL builds the ws:// or wss:// URL of an endpoint.
func EndpointURL(secure bool, host, port, path string) *url.URL {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	if path == "" {
		path = "/"
	}

	u := &url.URL{Scheme: scheme, Host: net.JoinHostPort(host, port)}
	if parsed, err := url.Parse(path); err == nil {
		u.Path = parsed.Path
		u.RawQuery = parsed.RawQuery
	} else {
		u.Path = path
	}
	return u
}
