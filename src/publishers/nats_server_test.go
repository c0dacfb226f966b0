package publishers

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/serializers"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
)

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	return natsserver.RunServer(&opts)
}

func subscribe(t *testing.T, url, subject string) (*nats.Conn, *nats.Subscription) {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	sub, err := nc.SubscribeSync(subject)
	if err != nil {
		nc.Close()
		t.Fatalf("subscribe %s: %v", subject, err)
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		t.Fatalf("subscriber flush: %v", err)
	}
	return nc, sub
}

func TestNATSPublisher_PublishesEventsOverCore(t *testing.T) {
	s := natsserver.RunRandClientPortServer()
	defer s.Shutdown()

	sc, sub := subscribe(t, s.ClientURL(), "nm.events.>")
	defer sc.Close()

	cfg := &models.MNATSConfig{
		Servers:       []string{s.ClientURL()},
		ClientID:      "network-monitor-test",
		SubjectPrefix: "nm",
		FlushTimeout:  time.Second,
	}
	np := NewNATSPublisher(cfg, logger.NewNopLogger(), serializers.NewJSONSerializer())
	if err := np.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer np.Disconnect()

	if !np.IsConnected() {
		t.Fatal("publisher should report connected")
	}

	np.OnNetworkEvent(&models.MNetworkEvent{
		Source:  "ltnm",
		Kind:    models.EventKindMessage,
		Payload: "hello",
	})
	if err := np.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("no event received: %v", err)
	}
	if msg.Subject != "nm.events.ltnm.message" {
		t.Errorf("subject = %q", msg.Subject)
	}
	var got models.MNetworkEvent
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	if got.Source != "ltnm" || got.Payload != "hello" || got.Kind != models.EventKindMessage {
		t.Errorf("unexpected event %+v", got)
	}
	if np.Published() != 1 {
		t.Errorf("Published() = %d, want 1", np.Published())
	}

	if err := np.Publish("raw.subject", []byte("ping")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := np.PublishJetStream("raw.subject", []byte("ping")); err == nil {
		t.Error("PublishJetStream without JetStream enabled should fail")
	}

	if err := np.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if np.IsConnected() {
		t.Error("publisher still connected after Disconnect")
	}
}

func TestNATSPublisher_CreatesStreamAndPublishesOverJetStream(t *testing.T) {
	s := runJetStreamServer(t)
	defer s.Shutdown()

	cfg := &models.MNATSConfig{
		Servers:       []string{s.ClientURL()},
		ClientID:      "network-monitor-test",
		SubjectPrefix: "nm",
		JetStream: &models.MJetStreamConfig{
			Enabled:    true,
			StreamName: "NETWORK_EVENTS",
			MaxAge:     time.Hour,
		},
	}
	np := NewNATSPublisher(cfg, logger.NewNopLogger(), serializers.NewJSONSerializer())
	if err := np.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer np.Disconnect()

	nc, err := nats.Connect(s.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	js, err := nc.JetStream()
	if err != nil {
		t.Fatal(err)
	}

	info, err := js.StreamInfo("NETWORK_EVENTS")
	if err != nil {
		t.Fatalf("stream was not created: %v", err)
	}
	if len(info.Config.Subjects) != 1 || info.Config.Subjects[0] != "nm.events.>" {
		t.Errorf("stream subjects = %v", info.Config.Subjects)
	}
	if info.Config.MaxAge != time.Hour {
		t.Errorf("stream max age = %s", info.Config.MaxAge)
	}

	np.OnNetworkEvent(&models.MNetworkEvent{Source: "ltnm", Kind: models.EventKindConnected})
	np.OnNetworkEvent(&models.MNetworkEvent{Source: "ltnm", Kind: models.EventKindMessage, Payload: "x"})
	if np.Published() != 2 {
		t.Fatalf("Published() = %d, want 2", np.Published())
	}

	info, err = js.StreamInfo("NETWORK_EVENTS")
	if err != nil {
		t.Fatal(err)
	}
	if info.State.Msgs != 2 {
		t.Errorf("stream holds %d messages, want 2", info.State.Msgs)
	}

	m, err := js.GetLastMsg("NETWORK_EVENTS", "nm.events.ltnm.message")
	if err != nil {
		t.Fatalf("last message: %v", err)
	}
	if !strings.Contains(string(m.Data), `"x"`) {
		t.Errorf("unexpected stored payload %s", m.Data)
	}

	// no stream captures this subject, so the ack never arrives
	err = np.PublishJetStream("unbound.subject", []byte("{}"))
	if err == nil {
		t.Error("expected a publish outside the stream to fail")
	}

	// a second connect against the existing stream keeps it
	again := NewNATSPublisher(cfg, logger.NewNopLogger(), serializers.NewJSONSerializer())
	if err := again.Connect(); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer again.Disconnect()
	if err := again.ensureStreamExists(); err != nil {
		t.Errorf("existing stream: %v", err)
	}
	info, err = js.StreamInfo("NETWORK_EVENTS")
	if err != nil || info.State.Msgs != 2 {
		t.Errorf("stream lost messages after reconnect: %v %+v", err, info)
	}
}
