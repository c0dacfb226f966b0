package models

import (
	"time"
)

// -----------------------------------------------------------------------------

// MNetworkEvent is one message received from a monitored endpoint, normalised
// by the endpoint's protocol codec before it is distributed.
type MNetworkEvent struct {
	Source     string            `json:"source"`
	Protocol   string            `json:"protocol"`
	Kind       MEventKind        `json:"kind"`
	Headers    map[string]string `json:"headers,omitempty"`
	Payload    string            `json:"payload"`
	ReceivedAt time.Time         `json:"received_at"`
}

// -----------------------------------------------------------------------------

// MEventKind classifies a received message
type MEventKind string

const (
	EventKindMessage   MEventKind = "MESSAGE"
	EventKindConnected MEventKind = "CONNECTED"
	EventKindReceipt   MEventKind = "RECEIPT"
	EventKindError     MEventKind = "ERROR"
	EventKindUnknown   MEventKind = "UNKNOWN"
)
