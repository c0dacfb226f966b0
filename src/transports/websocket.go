package transports

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"network-monitor/src/logger"
	"network-monitor/src/models"

	"github.com/eapache/queue"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCloseTimeout     = 5 * time.Second
)

// -----------------------------------------------------------------------------

// Option customises a WebSocketClient at construction time.
type Option func(*WebSocketClient)

// WithResolver replaces the DNS resolver.
func WithResolver(r Resolver) Option {
	return func(w *WebSocketClient) { w.resolver = r }
}

// WithRootCAs supplies the trust store directly instead of reading ca_cert_file.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(w *WebSocketClient) { w.rootCAs = pool }
}

// WithConnectTimeout overrides the TCP connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(w *WebSocketClient) { w.connector.Timeout = d }
}

// -----------------------------------------------------------------------------

// outbound is a queued text frame. payload is owned by the in-flight write
// until its completion is reported.
type outbound struct {
	payload []byte
	onSend  func(error)
}

// -----------------------------------------------------------------------------

// WebSocketClient implements IConnectionClient. It establishes a connection
// through resolve → connect → TLS → WebSocket upgrade, then pumps received
// text frames to onMessage while sends go through a FIFO queue.
//
// Every state change and every callback runs on the client's strand.
type WebSocketClient struct {
	name   string
	config *models.MEndpointConfig
	logger *logger.Logger

	resolver     Resolver
	rootCAs      *x509.CertPool
	connector    *Connector
	tlsStage     *TLSHandshaker
	wsStage      *WSHandshaker
	closeTimeout time.Duration

	connectCalled atomic.Bool
	state         atomic.Int32
	received      atomic.Uint64
	sent          atomic.Uint64
	lastErr       atomic.Value

	strand  *Strand
	pending sync.WaitGroup
	done    chan struct{}

	// Owned by the strand.
	ctx          context.Context
	cancel       context.CancelFunc
	establishing bool
	reported     bool
	stream       net.Conn
	conn         *websocket.Conn
	reading      bool
	writing      bool
	sendQueue    *queue.Queue
	closeTimer   *time.Timer
	onClose      func(error)
	closeErr     error
	onConnect    func(error)
	onMessage    func(error, string)
	onDisconnect func(error)

	// Borrowed by the receive goroutine, handed to the strand for delivery.
	readBuf bytes.Buffer
}

// -----------------------------------------------------------------------------

// NewWebSocketClient creates a client for one endpoint. It does not connect.
// A TLS endpoint whose CA bundle cannot be loaded is rejected here with
// ErrInvalidTrustStore.
func NewWebSocketClient(config *models.MEndpointConfig, log *logger.Logger, name string, opts ...Option) (*WebSocketClient, error) {
	if config == nil {
		return nil, fmt.Errorf("%s : endpoint config is nil", name)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	cc := config.ConnectionConfig
	w := &WebSocketClient{
		name:      name,
		config:    config,
		logger:    log,
		resolver:  NewNetResolver(),
		connector: &Connector{Timeout: cc.ConnectTimeout},
		wsStage: &WSHandshaker{
			Timeout:         cc.HandshakeTimeout,
			ReadBufferSize:  cc.ReadBufferSize,
			WriteBufferSize: cc.WriteBufferSize,
		},
		closeTimeout: cc.CloseTimeout,
		sendQueue:    queue.New(),
		done:         make(chan struct{}),
	}
	if w.wsStage.Timeout <= 0 {
		w.wsStage.Timeout = DefaultHandshakeTimeout
	}
	if w.closeTimeout <= 0 {
		w.closeTimeout = DefaultCloseTimeout
	}

	for _, opt := range opts {
		opt(w)
	}

	if config.TLS {
		if w.rootCAs == nil {
			pool, err := LoadTrustStore(config.CACertFile)
			if err != nil {
				return nil, fmt.Errorf("%s : %w", name, err)
			}
			w.rootCAs = pool
		}
		w.tlsStage = &TLSHandshaker{RootCAs: w.rootCAs}
	}

	return w, nil
}

// -----------------------------------------------------------------------------

// Connect starts the connection pipeline and returns immediately. onConnect is
// called exactly once with the outcome; onMessage for each received payload;
// onDisconnect once if an open connection is lost. Any callback may be nil.
// A client connects at most once.
func (w *WebSocketClient) Connect(onConnect func(error), onMessage func(error, string), onDisconnect func(error)) error {
	if !w.connectCalled.CompareAndSwap(false, true) {
		return &ProtocolStateError{Op: "connect", State: w.State()}
	}

	w.onConnect = onConnect
	w.onMessage = onMessage
	w.onDisconnect = onDisconnect
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.establishing = true

	w.strand = NewStrand()
	go func() {
		<-w.strand.Done()
		close(w.done)
	}()

	w.setState(StateResolving)
	w.logger.Info("%s : connecting to %s", w.name, w.GetEndpoint())

	w.pending.Add(1)
	go w.establish(w.ctx)
	return nil
}

// -----------------------------------------------------------------------------

// Send queues payload as a text frame. onSend reports the outcome of that
// write. When the connection is not open it fails at once with a
// *ProtocolStateError and the connection state is left untouched.
func (w *WebSocketClient) Send(payload string, onSend func(error)) {
	if state := w.State(); state != StateOpen {
		notify(onSend, &ProtocolStateError{Op: "send", State: state})
		return
	}

	item := &outbound{payload: []byte(payload), onSend: onSend}
	if !w.strand.Post(func() { w.enqueue(item) }) {
		notify(onSend, &ProtocolStateError{Op: "send", State: w.State()})
	}
}

// -----------------------------------------------------------------------------

// Close starts the close handshake, or aborts the pipeline if the connection
// is still being set up. onClose reports completion; onDisconnect does not fire.
func (w *WebSocketClient) Close(onClose func(error)) {
	state := w.State()
	if state == StateIdle {
		notify(onClose, &ProtocolStateError{Op: "close", State: state})
		return
	}
	if !w.strand.Post(func() { w.beginClose(onClose) }) {
		notify(onClose, &ProtocolStateError{Op: "close", State: w.State()})
	}
}

// -----------------------------------------------------------------------------

// State returns the current state of the connection.
func (w *WebSocketClient) State() State {
	return State(w.state.Load())
}

// GetState returns the state name, for status reports
func (w *WebSocketClient) GetState() string {
	return w.State().String()
}

// Done is closed once the client reached Closed and every pending completion
// has been delivered. It never closes for a client that was never connected.
func (w *WebSocketClient) Done() <-chan struct{} {
	return w.done
}

// GetName returns the client name
func (w *WebSocketClient) GetName() string {
	return w.name
}

// GetType returns the transport type
func (w *WebSocketClient) GetType() string {
	return "websocket"
}

// IsRunning reports whether the connection is open
func (w *WebSocketClient) IsRunning() bool {
	return w.State() == StateOpen
}

// GetEndpoint returns the ws:// or wss:// URL of the target
func (w *WebSocketClient) GetEndpoint() string {
	return EndpointURL(w.config.TLS, w.config.Host, w.config.Port, w.config.Path).String()
}

// Received returns the number of delivered messages
func (w *WebSocketClient) Received() uint64 {
	return w.received.Load()
}

// Sent returns the number of completed writes
func (w *WebSocketClient) Sent() uint64 {
	return w.sent.Load()
}

// LastError returns the text of the most recent connection-level failure
func (w *WebSocketClient) LastError() string {
	if s, ok := w.lastErr.Load().(string); ok {
		return s
	}
	return ""
}

// -----------------------------------------------------------------------------
// Connection pipeline
// -----------------------------------------------------------------------------

// establish runs the setup stages in sequence on its own goroutine and posts
// the outcome to the strand.
func (w *WebSocketClient) establish(ctx context.Context) {
	defer w.pending.Done()

	stream, conn, err := w.runStages(ctx)
	w.strand.Post(func() { w.onEstablished(stream, conn, err) })
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) runStages(ctx context.Context) (net.Conn, *websocket.Conn, error) {
	cfg := w.config

	addrs, err := w.resolver.Resolve(ctx, cfg.Host, cfg.Port)
	if err != nil {
		return nil, nil, err
	}
	if err := w.advance(StateConnecting, nil); err != nil {
		return nil, nil, err
	}

	raw, err := w.connector.Connect(ctx, addrs)
	if err != nil {
		return nil, nil, err
	}

	// Handshake reads do not watch ctx; closing the socket interrupts them.
	stop := context.AfterFunc(ctx, func() { raw.Close() })
	defer stop()

	stream := raw
	if w.tlsStage != nil {
		if err := w.advance(StateTLSHandshaking, raw); err != nil {
			raw.Close()
			return nil, nil, err
		}
		tlsConn, err := w.tlsStage.Handshake(ctx, raw, cfg.Host)
		if err != nil {
			return nil, nil, err
		}
		stream = tlsConn
	}

	if err := w.advance(StateWSHandshaking, stream); err != nil {
		stream.Close()
		return nil, nil, err
	}
	conn, err := w.wsStage.Handshake(ctx, stream, w.tlsStage != nil, cfg.Host, cfg.Port, cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return stream, conn, nil
}

// -----------------------------------------------------------------------------

// advance moves the state machine to the next setup stage, unless Close has
// been requested in the meantime.
func (w *WebSocketClient) advance(next State, stream net.Conn) error {
	var err error
	ok := w.strand.Await(func() {
		if state := w.State(); !state.settingUp() {
			err = ErrAborted
			return
		}
		w.stream = stream
		w.setState(next)
	})
	if !ok {
		return ErrAborted
	}
	return err
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) onEstablished(stream net.Conn, conn *websocket.Conn, err error) {
	w.establishing = false

	if err == nil && w.State() != StateWSHandshaking {
		conn.Close()
		err = ErrAborted
	}

	if err != nil {
		if w.State() == StateClosing && !errors.Is(err, ErrAborted) {
			err = fmt.Errorf("%w: %w", ErrAborted, err)
		}
		if w.stream != nil {
			w.stream.Close()
			w.stream = nil
		}
		w.recordError(err)
		w.logger.Error("%s : connection to %s failed: %v", w.name, w.GetEndpoint(), err)

		// nothing is reading or writing yet, so the connection closes at once
		// and onConnect already observes Closed
		w.setState(StateClosing)
		w.teardown()
		w.reportConnect(err)
		w.completeClose()
		return
	}

	w.stream = stream
	w.conn = conn
	w.setState(StateOpen)
	w.logger.Info("%s : websocket connected to %s", w.name, w.GetEndpoint())

	w.reading = true
	w.pending.Add(1)
	go w.receive(conn)

	w.reportConnect(nil)
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) reportConnect(err error) {
	if w.reported {
		return
	}
	w.reported = true
	notify(w.onConnect, err)
}

// -----------------------------------------------------------------------------
// Message pump
// -----------------------------------------------------------------------------

// receive keeps exactly one read outstanding. The read buffer is filled here
// and handed to the strand; the next read starts only after delivery returns.
func (w *WebSocketClient) receive(conn *websocket.Conn) {
	defer w.pending.Done()

	for {
		_, reader, err := conn.NextReader()
		if err == nil {
			w.readBuf.Reset()
			_, err = w.readBuf.ReadFrom(reader)
		}
		if err != nil {
			w.strand.Post(func() { w.onReadFailed(err) })
			return
		}

		w.strand.Await(w.deliver)
	}
}

// -----------------------------------------------------------------------------

// deliver hands the buffered payload to onMessage. Payloads that arrive while
// the connection is closing are dropped.
func (w *WebSocketClient) deliver() {
	if w.State() != StateOpen {
		return
	}
	payload := w.readBuf.String()
	w.received.Add(1)
	if w.onMessage != nil {
		w.onMessage(nil, payload)
	}
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) onReadFailed(err error) {
	w.reading = false

	switch w.State() {
	case StateOpen:
		readErr := &ReadError{Err: err}
		w.recordError(readErr)
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			w.logger.Info("%s : connection closed by peer: %v", w.name, err)
		} else {
			w.logger.Error("%s : read failed: %v", w.name, err)
		}

		w.setState(StateClosing)
		w.conn.Close()
		notify(w.onDisconnect, readErr)

	case StateClosing:
		var closeFrame *websocket.CloseError
		if w.onClose != nil && w.closeErr == nil && !errors.As(err, &closeFrame) {
			w.closeErr = &CloseError{Err: err}
		}
	}

	w.finish()
}

// -----------------------------------------------------------------------------
// Send queue
// -----------------------------------------------------------------------------

func (w *WebSocketClient) enqueue(item *outbound) {
	if state := w.State(); state != StateOpen {
		notify(item.onSend, &ProtocolStateError{Op: "send", State: state})
		return
	}
	w.sendQueue.Add(item)
	w.flush()
}

// -----------------------------------------------------------------------------

// flush starts the next queued write when none is in flight.
func (w *WebSocketClient) flush() {
	if w.writing || w.sendQueue.Length() == 0 || w.State() != StateOpen {
		return
	}

	item := w.sendQueue.Remove().(*outbound)
	conn := w.conn
	w.writing = true

	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		err := conn.WriteMessage(websocket.TextMessage, item.payload)
		w.strand.Post(func() { w.onWritten(item, err) })
	}()
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) onWritten(item *outbound, err error) {
	w.writing = false

	if err != nil {
		writeErr := &WriteError{Err: err}
		notify(item.onSend, writeErr)

		if w.State() == StateOpen {
			w.recordError(writeErr)
			w.logger.Error("%s : write failed: %v", w.name, err)
			w.setState(StateClosing)
			w.conn.Close()
			notify(w.onDisconnect, writeErr)
		}
		w.finish()
		return
	}

	w.sent.Add(1)
	notify(item.onSend, nil)
	w.flush()
	w.finish()
}

// -----------------------------------------------------------------------------
// Shutdown
// -----------------------------------------------------------------------------

func (w *WebSocketClient) beginClose(onClose func(error)) {
	state := w.State()

	switch {
	case state.settingUp():
		w.logger.Info("%s : aborting connection while %s", w.name, state)
		w.onClose = onClose
		w.setState(StateClosing)
		w.cancel()

	case state == StateOpen:
		w.logger.Info("%s : closing connection to %s", w.name, w.GetEndpoint())
		w.onClose = onClose
		w.setState(StateClosing)

		w.closeTimer = time.AfterFunc(w.closeTimeout, func() {
			w.strand.Post(w.closeTimedOut)
		})

		conn := w.conn
		timeout := w.closeTimeout
		w.pending.Add(1)
		go func() {
			defer w.pending.Done()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout)); err != nil {
				w.strand.Post(func() { w.closeFrameFailed(err) })
			}
		}()

	default:
		notify(onClose, &ProtocolStateError{Op: "close", State: state})
	}
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) closeTimedOut() {
	if w.State() != StateClosing || !w.reading {
		return
	}
	if w.closeErr == nil {
		w.closeErr = &CloseError{Err: ErrCloseTimeout}
	}
	w.logger.Warning("%s : peer did not answer the close frame within %s", w.name, w.closeTimeout)
	w.conn.Close()
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) closeFrameFailed(err error) {
	if w.State() != StateClosing {
		return
	}
	if w.closeErr == nil {
		w.closeErr = &CloseError{Err: err}
	}
	w.conn.Close()
}

// -----------------------------------------------------------------------------

// finish moves Closing to Closed once nothing is in flight.
func (w *WebSocketClient) finish() {
	if w.State() != StateClosing || w.establishing || w.reading || w.writing {
		return
	}
	w.teardown()
	w.completeClose()
}

// -----------------------------------------------------------------------------

// teardown enters Closed, releases the transport and fails leftover sends.
func (w *WebSocketClient) teardown() {
	w.setState(StateClosed)
	if w.closeTimer != nil {
		w.closeTimer.Stop()
	}
	w.cancel()

	if w.conn != nil {
		w.conn.Close()
	} else if w.stream != nil {
		w.stream.Close()
	}

	for w.sendQueue.Length() > 0 {
		item := w.sendQueue.Remove().(*outbound)
		notify(item.onSend, &WriteError{Err: ErrConnectionClosed})
	}
}

// -----------------------------------------------------------------------------

// completeClose reports a pending Close and stops the strand once every
// helper goroutine has returned.
func (w *WebSocketClient) completeClose() {
	if w.onClose != nil {
		onClose := w.onClose
		w.onClose = nil
		onClose(w.closeErr)
	}

	w.logger.Info("%s : connection to %s closed", w.name, w.GetEndpoint())

	go func() {
		w.pending.Wait()
		w.strand.Stop()
	}()
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) setState(next State) {
	prev := State(w.state.Swap(int32(next)))
	if prev != next {
		w.logger.Debug("%s : state %s -> %s", w.name, prev, next)
	}
}

// -----------------------------------------------------------------------------

func (w *WebSocketClient) recordError(err error) {
	w.lastErr.Store(err.Error())
}

// -----------------------------------------------------------------------------

func notify(cb func(error), err error) {
	if cb != nil {
		cb(err)
	}
}
