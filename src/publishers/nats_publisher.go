package publishers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"network-monitor/src/interfaces"
	"network-monitor/src/logger"
	"network-monitor/src/models"

	"github.com/nats-io/nats.go"
)

var ErrNotConnected = errors.New("nats client not connected")

// -----------------------------------------------------------------------------

// NATSPublisher distributes received network events over NATS core or, when
// configured, a JetStream stream.
type NATSPublisher struct {
	name   string
	config *models.MNATSConfig
	logger *logger.Logger

	mu           sync.RWMutex
	nc           *nats.Conn
	js           nats.JetStreamContext
	useJetStream bool
	serializer   interfaces.ISerializer

	connected atomic.Bool
	published atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewNATSPublisher creates a publisher for config. It does not connect.
func NewNATSPublisher(config *models.MNATSConfig, logger *logger.Logger, serializer interfaces.ISerializer) *NATSPublisher {
	return &NATSPublisher{
		name:       config.ClientID,
		config:     config,
		logger:     logger,
		serializer: serializer,
	}
}

// -----------------------------------------------------------------------------

// OnNetworkEvent serialises event and publishes it on
// <prefix>.events.<source>.<kind>. Failures are logged, never returned.
func (np *NATSPublisher) OnNetworkEvent(event *models.MNetworkEvent) {
	if event == nil {
		return
	}
	subject := EventSubject(event)

	data, err := np.serializer.Marshal(event)
	if err != nil {
		np.logger.Error("%s : failed to serialize event for %s: %v", np.name, subject, err)
		return
	}

	np.mu.RLock()
	jetStream := np.useJetStream
	np.mu.RUnlock()

	if jetStream {
		err = np.PublishJetStream(subject, data)
	} else {
		err = np.Publish(subject, data)
	}
	if err != nil {
		np.logger.Error("%s : failed to publish %s event from %s to %s: %v",
			np.name, event.Kind, event.Source, np.getSubject(subject), err)
		return
	}
	np.published.Add(1)
}

// -----------------------------------------------------------------------------

// Publish sends data to a NATS core subject (fire-and-forget).
func (np *NATSPublisher) Publish(subject string, data []byte) error {
	np.mu.RLock()
	nc := np.nc
	np.mu.RUnlock()

	if !np.IsConnected() || nc == nil {
		return ErrNotConnected
	}
	return nc.Publish(np.getSubject(subject), data)
}

// -----------------------------------------------------------------------------

// PublishJetStream sends data through JetStream and waits for the ack.
func (np *NATSPublisher) PublishJetStream(subject string, data []byte) error {
	np.mu.RLock()
	js := np.js
	np.mu.RUnlock()

	if !np.IsConnected() {
		return ErrNotConnected
	}
	if js == nil {
		return fmt.Errorf("jetstream is not initialized or enabled")
	}

	fullSubject := np.getSubject(subject)
	if _, err := js.Publish(fullSubject, data); err != nil {
		return fmt.Errorf("jetstream publish to %s: %w", fullSubject, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Connect dials the configured servers and prepares JetStream if enabled.
func (np *NATSPublisher) Connect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc != nil && np.nc.IsConnected() {
		return nil
	}
	if len(np.config.Servers) == 0 {
		return fmt.Errorf("nats connection failed: no servers configured")
	}

	var err error
	np.nc, err = nats.Connect(strings.Join(np.config.Servers, ","), np.options()...)
	if err != nil {
		return fmt.Errorf("nats connection failed: %w", err)
	}

	np.connected.Store(np.nc.IsConnected())
	np.logger.Info("%s : connected to NATS at %s", np.name, np.nc.ConnectedUrl())

	if np.config.JetStream == nil || !np.config.JetStream.Enabled {
		np.useJetStream = false
		np.logger.Info("%s : publishing network events over NATS core", np.name)
		return nil
	}

	np.js, err = np.nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context creation failed: %w", err)
	}
	np.useJetStream = true

	if err := np.ensureStreamExists(); err != nil {
		np.logger.Warning("%s : failed to ensure stream exists: %v (continuing anyway)", np.name, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (np *NATSPublisher) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(np.config.ClientID),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(np.config.MaxReconnects),
		nats.ClosedHandler(func(nc *nats.Conn) {
			np.logger.Warning("%s : NATS connection closed", np.name)
			np.connected.Store(false)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			np.logger.Warning("%s : NATS disconnected, attempting reconnect: %v", np.name, err)
			np.connected.Store(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			np.logger.Info("%s : NATS reconnected to %s", np.name, nc.ConnectedUrl())
			np.connected.Store(true)
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			np.connected.Store(true)
		}),
	}
	if np.config.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(np.config.ConnectTimeout))
	}
	if np.config.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(np.config.ReconnectWait))
	}
	if np.config.FlushTimeout > 0 {
		opts = append(opts, nats.FlusherTimeout(np.config.FlushTimeout))
	}
	return opts
}

// -----------------------------------------------------------------------------

// ensureStreamExists creates the configured stream when it is missing.
func (np *NATSPublisher) ensureStreamExists() error {
	cfg := np.config.JetStream
	if cfg.StreamName == "" {
		return fmt.Errorf("stream name not configured")
	}

	if stream, err := np.js.StreamInfo(cfg.StreamName); err == nil {
		np.logger.Info("%s : JetStream stream '%s' already exists with %d subjects",
			np.name, cfg.StreamName, len(stream.Config.Subjects))
		return nil
	}

	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 24 * time.Hour
	}
	subjects := cfg.Subjects
	if len(subjects) == 0 {
		subjects = []string{np.getSubject("events.>")}
	}

	_, err := np.js.AddStream(&nats.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   subjects,
		Retention:  nats.LimitsPolicy,
		Storage:    nats.FileStorage,
		Replicas:   cfg.Replicas,
		MaxAge:     maxAge,
		MaxMsgs:    cfg.MaxMsgs,
		MaxBytes:   cfg.MaxBytes,
		MaxMsgSize: int32(cfg.MaxMsgSize),
		Discard:    nats.DiscardOld,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream '%s': %w", cfg.StreamName, err)
	}

	np.logger.Info("%s : created JetStream stream '%s' with subjects %v", np.name, cfg.StreamName, subjects)
	return nil
}

// -----------------------------------------------------------------------------

// Disconnect drains pending messages and closes the connection.
func (np *NATSPublisher) Disconnect() error {
	np.mu.Lock()
	defer np.mu.Unlock()

	if np.nc == nil || np.nc.IsClosed() {
		return nil
	}

	if np.nc.IsConnected() {
		if err := np.nc.FlushTimeout(np.flushTimeout()); err != nil {
			np.logger.Warning("%s : flush before close failed: %v", np.name, err)
		}
	}
	np.nc.Close()
	np.connected.Store(false)
	np.logger.Info("%s : NATS connection closed after %d events", np.name, np.published.Load())
	return nil
}

// -----------------------------------------------------------------------------

// IsConnected reports whether the NATS connection is currently up.
func (np *NATSPublisher) IsConnected() bool {
	return np.connected.Load()
}

// GetName returns the client identifier
func (np *NATSPublisher) GetName() string {
	return np.name
}

// Published returns how many events were handed to NATS
func (np *NATSPublisher) Published() uint64 {
	return np.published.Load()
}

// -----------------------------------------------------------------------------

// Flush waits until the server has processed everything published so far.
func (np *NATSPublisher) Flush() error {
	np.mu.RLock()
	nc := np.nc
	np.mu.RUnlock()

	if !np.IsConnected() || nc == nil {
		return fmt.Errorf("cannot flush: %w", ErrNotConnected)
	}
	return nc.FlushTimeout(np.flushTimeout())
}

// -----------------------------------------------------------------------------

func (np *NATSPublisher) flushTimeout() time.Duration {
	if np.config.FlushTimeout > 0 {
		return np.config.FlushTimeout
	}
	return 5 * time.Second
}

// -----------------------------------------------------------------------------

// getSubject prepends the configured subject prefix if it exists.
func (np *NATSPublisher) getSubject(subject string) string {
	if np.config.SubjectPrefix != "" {
		return np.config.SubjectPrefix + "." + subject
	}
	return subject
}

// -----------------------------------------------------------------------------

// EventSubject returns the unprefixed subject of an event:
// events.<source>.<kind>, with tokens made safe for NATS.
func EventSubject(event *models.MNetworkEvent) string {
	kind := strings.ToLower(string(event.Kind))
	if kind == "" {
		kind = strings.ToLower(string(models.EventKindUnknown))
	}
	return "events." + subjectToken(event.Source) + "." + subjectToken(kind)
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "\t", "_", "*", "_", ">", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}
