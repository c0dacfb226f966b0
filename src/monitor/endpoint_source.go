package monitor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"network-monitor/src/interfaces"
	"network-monitor/src/logger"
	"network-monitor/src/models"
	"network-monitor/src/transports"
)

// StopTimeout bounds how long Stop waits for a connection to tear down.
const StopTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// EndpointSource pairs a protocol codec with the connection client of one
// monitored endpoint.
type EndpointSource struct {
	Name     string
	Logger   *logger.Logger
	Protocol interfaces.IProtocol
	Client   interfaces.IConnectionClient

	// OnEvent receives every parsed message.
	OnEvent func(*models.MNetworkEvent)
	// OnHealth is told whenever the connection opens or stops being open.
	OnHealth func(name string, open bool)

	started  atomic.Bool
	received atomic.Uint64
	sent     atomic.Uint64
	lastErr  atomic.Value
}

// -----------------------------------------------------------------------------

// GetName returns the endpoint name.
func (s *EndpointSource) GetName() string {
	return s.Name
}

// -----------------------------------------------------------------------------

// Start begins connecting and returns immediately. The protocol handshake
// payload, if any, is sent as soon as the connection opens.
func (s *EndpointSource) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("endpoint source %s already started", s.Name)
	}

	s.Logger.Info("%s : connecting to %s (%s)", s.Name, s.Client.GetEndpoint(), s.Protocol.GetName())
	if err := s.Client.Connect(s.onConnect, s.onMessage, s.onDisconnect); err != nil {
		return fmt.Errorf("failed to start client %s: %w", s.Name, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop closes the connection and waits until it is torn down.
func (s *EndpointSource) Stop() error {
	if !s.started.Load() {
		return nil
	}

	s.Logger.Info("%s : stopping connection", s.Name)

	closed := make(chan error, 1)
	s.Client.Close(func(err error) { closed <- err })

	timeout := time.NewTimer(StopTimeout)
	defer timeout.Stop()

	var closeErr error
	select {
	case closeErr = <-closed:
	case <-timeout.C:
		return fmt.Errorf("%s : close did not complete within %s", s.Name, StopTimeout)
	}

	// a connection that already ended reports a state error; that is not a failure
	var stateErr *transports.ProtocolStateError
	if errors.As(closeErr, &stateErr) {
		closeErr = nil
	}

	select {
	case <-s.Client.Done():
	case <-timeout.C:
		return fmt.Errorf("%s : connection did not finish within %s", s.Name, StopTimeout)
	}
	s.reportHealth(false)

	if closeErr != nil {
		s.recordError(closeErr)
		return fmt.Errorf("%s : close failed: %w", s.Name, closeErr)
	}
	s.Logger.Info("%s : connection closed (%d received, %d sent)", s.Name, s.received.Load(), s.sent.Load())
	return nil
}

// -----------------------------------------------------------------------------

// Send queues payload on the open connection.
func (s *EndpointSource) Send(payload string) error {
	if !s.Client.IsRunning() {
		return fmt.Errorf("%s : connection is %s", s.Name, s.Client.GetState())
	}
	s.Client.Send(payload, s.onSend)
	return nil
}

// -----------------------------------------------------------------------------

// GetStatus snapshots the connection state and counters.
func (s *EndpointSource) GetStatus() *models.MConnectionStatus {
	status := &models.MConnectionStatus{
		SourceName:       s.Name,
		Running:          s.Client.IsRunning(),
		State:            s.Client.GetState(),
		Protocol:         s.Protocol.GetName(),
		TransportType:    s.Client.GetType(),
		Endpoint:         s.Client.GetEndpoint(),
		MessagesReceived: s.received.Load(),
		MessagesSent:     s.sent.Load(),
	}
	if err, ok := s.lastErr.Load().(string); ok {
		status.LastError = err
	}
	return status
}

// -----------------------------------------------------------------------------
// Connection callbacks, all invoked on the client's strand
// -----------------------------------------------------------------------------

func (s *EndpointSource) onConnect(err error) {
	if err != nil {
		s.recordError(err)
		s.Logger.Error("%s : connection failed: %v", s.Name, err)
		s.reportHealth(false)
		return
	}

	s.Logger.Info("%s : connection open", s.Name)
	if payload, ok := s.Protocol.Handshake(); ok {
		s.Client.Send(payload, func(err error) {
			if err != nil {
				s.recordError(err)
				s.Logger.Error("%s : %s handshake failed: %v", s.Name, s.Protocol.GetName(), err)
				return
			}
			s.sent.Add(1)
			s.Logger.Debug("%s : %s handshake sent", s.Name, s.Protocol.GetName())
		})
	}
	s.reportHealth(true)
}

// -----------------------------------------------------------------------------

func (s *EndpointSource) onMessage(err error, payload string) {
	if err != nil {
		s.Logger.Warning("%s : receive error: %v", s.Name, err)
		return
	}
	s.received.Add(1)

	event, err := s.Protocol.ParseMessage(payload)
	if err != nil {
		s.Logger.Warning("%s : dropping unparsable message: %v", s.Name, err)
		return
	}
	if event.Kind == models.EventKindError {
		s.Logger.Warning("%s : endpoint reported an error: %s", s.Name, event.Headers["message"])
	}
	if s.OnEvent != nil {
		s.OnEvent(event)
	}
}

// -----------------------------------------------------------------------------

func (s *EndpointSource) onDisconnect(err error) {
	s.recordError(err)
	s.Logger.Warning("%s : connection lost: %v", s.Name, err)
	s.reportHealth(false)
}

// -----------------------------------------------------------------------------

func (s *EndpointSource) onSend(err error) {
	if err != nil {
		s.recordError(err)
		s.Logger.Error("%s : send failed: %v", s.Name, err)
		return
	}
	s.sent.Add(1)
}

// -----------------------------------------------------------------------------

func (s *EndpointSource) reportHealth(open bool) {
	if s.OnHealth != nil {
		s.OnHealth(s.Name, open)
	}
}

func (s *EndpointSource) recordError(err error) {
	if err != nil {
		s.lastErr.Store(err.Error())
	}
}
