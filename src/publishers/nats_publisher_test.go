package publishers

import (
	"errors"
	"testing"

	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/serializers"
)

func newTestPublisher(prefix string) *NATSPublisher {
	cfg := &models.MNATSConfig{ClientID: "network-monitor", SubjectPrefix: prefix}
	return NewNATSPublisher(cfg, logger.NewNopLogger(), serializers.NewJSONSerializer())
}

func TestEventSubject(t *testing.T) {
	tests := []struct {
		source string
		kind   models.MEventKind
		want   string
	}{
		{"ltnm", models.EventKindMessage, "events.ltnm.message"},
		{"echo.websocket.org", models.EventKindConnected, "events.echo_websocket_org.connected"},
		{"", "", "events._.unknown"},
		{"a b>*", models.EventKindError, "events.a_b__.error"},
	}
	for _, tt := range tests {
		got := EventSubject(&models.MNetworkEvent{Source: tt.source, Kind: tt.kind})
		if got != tt.want {
			t.Errorf("EventSubject(%q, %q) = %q, want %q", tt.source, tt.kind, got, tt.want)
		}
	}

	if got := newTestPublisher("nm").getSubject("events.x.message"); got != "nm.events.x.message" {
		t.Errorf("prefixed subject = %q", got)
	}
	if got := newTestPublisher("").getSubject("events.x.message"); got != "events.x.message" {
		t.Errorf("unprefixed subject = %q", got)
	}
}

func TestNATSPublisher_NotConnected(t *testing.T) {
	np := newTestPublisher("nm")

	if np.IsConnected() {
		t.Fatal("fresh publisher must not report connected")
	}
	if err := np.Publish("events.x.message", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish error = %v", err)
	}
	if err := np.PublishJetStream("events.x.message", []byte("{}")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishJetStream error = %v", err)
	}
	if err := np.Flush(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Flush error = %v", err)
	}

	np.OnNetworkEvent(&models.MNetworkEvent{Source: "x", Kind: models.EventKindMessage})
	np.OnNetworkEvent(nil)
	if np.Published() != 0 {
		t.Errorf("Published() = %d, want 0", np.Published())
	}

	if err := np.Disconnect(); err != nil {
		t.Errorf("Disconnect on an unconnected publisher: %v", err)
	}
	if err := np.Connect(); err == nil {
		t.Error("Connect without servers should fail")
	}
}
