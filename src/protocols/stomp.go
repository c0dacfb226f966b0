package protocols

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"network-monitor/src/interfaces"
	"network-monitor/src/models"
)

// ErrMalformedFrame is returned for payloads that are not STOMP frames.
var ErrMalformedFrame = errors.New("malformed stomp frame")

// -----------------------------------------------------------------------------

// Stomp speaks just enough STOMP 1.2 to log in and classify the frames the
// server pushes back. Subscriptions are not managed here.
type Stomp struct {
	Endpoint *models.MEndpointConfig
}

// -----------------------------------------------------------------------------

func init() {
	if err := Register("stomp", NewStomp); err != nil {
		fmt.Printf("Error registering stomp protocol: %v\n", err)
	}
}

// -----------------------------------------------------------------------------

// NewStomp creates a STOMP 1.2 codec using the endpoint host and credentials.
func NewStomp(endpoint *models.MEndpointConfig) (interfaces.IProtocol, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("stomp: endpoint config is nil")
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("stomp: endpoint %s has no host", endpoint.Name)
	}
	return &Stomp{Endpoint: endpoint}, nil
}

// -----------------------------------------------------------------------------

// GetName returns the protocol name.
func (s *Stomp) GetName() string {
	return "stomp"
}

// -----------------------------------------------------------------------------

// Handshake returns the STOMP connect frame. Credentials are only included
// when configured.
func (s *Stomp) Handshake() (string, bool) {
	var b strings.Builder
	b.WriteString("STOMP\n")
	b.WriteString("accept-version:1.2\n")
	b.WriteString("host:" + escapeHeader(s.Endpoint.Host) + "\n")
	if s.Endpoint.Username != "" {
		b.WriteString("login:" + escapeHeader(s.Endpoint.Username) + "\n")
	}
	if s.Endpoint.Password != "" {
		b.WriteString("passcode:" + escapeHeader(s.Endpoint.Password) + "\n")
	}
	b.WriteString("\n\x00")
	return b.String(), true
}

// -----------------------------------------------------------------------------

// ParseMessage splits a frame into command, headers and body. Heart-beat
// newlines before the command are skipped.
func (s *Stomp) ParseMessage(payload string) (*models.MNetworkEvent, error) {
	frame := strings.TrimLeft(payload, "\r\n")

	head, body, found := strings.Cut(frame, "\n\n")
	if !found {
		head, body, found = strings.Cut(frame, "\r\n\r\n")
	}
	if !found {
		return nil, fmt.Errorf("%w: missing header terminator", ErrMalformedFrame)
	}
	if i := strings.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}

	lines := strings.Split(strings.ReplaceAll(head, "\r\n", "\n"), "\n")
	command := lines[0]
	if command == "" {
		return nil, fmt.Errorf("%w: empty command", ErrMalformedFrame)
	}

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: bad header line %q", ErrMalformedFrame, line)
		}
		key = unescapeHeader(key)
		// repeated headers: the first occurrence wins
		if _, seen := headers[key]; !seen {
			headers[key] = unescapeHeader(value)
		}
	}

	return &models.MNetworkEvent{
		Source:     s.Endpoint.Name,
		Protocol:   s.GetName(),
		Kind:       frameKind(command),
		Headers:    headers,
		Payload:    body,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

func frameKind(command string) models.MEventKind {
	switch command {
	case "CONNECTED":
		return models.EventKindConnected
	case "MESSAGE":
		return models.EventKindMessage
	case "RECEIPT":
		return models.EventKindReceipt
	case "ERROR":
		return models.EventKindError
	default:
		return models.EventKindUnknown
	}
}

// -----------------------------------------------------------------------------

var (
	headerEscaper   = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	headerUnescaper = strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n", `\c`, ":")
)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) string {
	return headerUnescaper.Replace(s)
}
