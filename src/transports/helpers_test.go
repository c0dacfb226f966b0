package transports_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"network-monitor/src/models"
	"network-monitor/src/transports"

	coderws "github.com/coder/websocket"
)

const waitTimeout = 5 * time.Second

// echoHandler upgrades requests on "/" and writes every message back.
// Other paths are rejected with 404.
func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		c, err := coderws.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()

		ctx := context.Background()
		for {
			typ, data, err := c.Read(ctx)
			if err != nil {
				return
			}
			if err := c.Write(ctx, typ, data); err != nil {
				return
			}
		}
	})
}

// closingHandler greets the client then closes the connection itself.
func closingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := coderws.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := context.Background()
		_ = c.Write(ctx, coderws.MessageText, []byte("bye"))
		_ = c.Close(coderws.StatusNormalClosure, "server shutting down")
	})
}

// silentHandler upgrades and then never reads, so close frames go unanswered.
func silentHandler(release <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := coderws.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		<-release
	})
}

func hostPort(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(ts.Listener.Addr().String())
	if err != nil {
		t.Fatalf("bad listener address: %v", err)
	}
	return host, port
}

func plainEndpoint(t *testing.T, ts *httptest.Server, path string) *models.MEndpointConfig {
	t.Helper()
	host, port := hostPort(t, ts)
	return &models.MEndpointConfig{
		Name: "test",
		Host: host,
		Port: port,
		Path: path,
		ConnectionConfig: models.MConnectionConfig{
			CloseTimeout: time.Second,
		},
	}
}

func tlsEndpoint(t *testing.T, ts *httptest.Server, caFile string) *models.MEndpointConfig {
	t.Helper()
	ep := plainEndpoint(t, ts, "/")
	ep.TLS = true
	ep.CACertFile = caFile
	return ep
}

// writeServerCA stores the certificate of a TLS test server as a PEM bundle.
func writeServerCA(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	return writePEM(t, ts.Certificate().Raw)
}

// writeForeignCA stores a freshly generated CA that signed nothing the test
// servers present.
func writeForeignCA(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: "foreign test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return writePEM(t, der)
}

func writePEM(t *testing.T, der []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cacert.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// staticResolver maps every host to a fixed address list.
type staticResolver struct {
	addrs []string
	err   error
}

func (r staticResolver) Resolve(ctx context.Context, host, port string) ([]string, error) {
	if r.err != nil {
		return nil, &transports.ResolveError{Host: host, Port: port, Err: r.err}
	}
	return r.addrs, nil
}

// blockingResolver parks the pipeline in Resolving until its context ends.
type blockingResolver struct {
	entered chan struct{}
}

func (r blockingResolver) Resolve(ctx context.Context, host, port string) ([]string, error) {
	close(r.entered)
	<-ctx.Done()
	return nil, &transports.ResolveError{Host: host, Port: port, Err: ctx.Err()}
}

// recorder collects every callback the client fires.
type recorder struct {
	mu          sync.Mutex
	connects    []error
	messages    []string
	disconnects []error

	connected    chan error
	message      chan string
	disconnected chan error
}

func newRecorder() *recorder {
	return &recorder{
		connected:    make(chan error, 4),
		message:      make(chan string, 256),
		disconnected: make(chan error, 4),
	}
}

func (r *recorder) onConnect(err error) {
	r.mu.Lock()
	r.connects = append(r.connects, err)
	r.mu.Unlock()
	r.connected <- err
}

func (r *recorder) onMessage(err error, payload string) {
	r.mu.Lock()
	r.messages = append(r.messages, payload)
	r.mu.Unlock()
	r.message <- payload
}

func (r *recorder) onDisconnect(err error) {
	r.mu.Lock()
	r.disconnects = append(r.disconnects, err)
	r.mu.Unlock()
	r.disconnected <- err
}

func (r *recorder) counts() (connects, messages, disconnects int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connects), len(r.messages), len(r.disconnects)
}

func (r *recorder) connect(t *testing.T, c *transports.WebSocketClient) {
	t.Helper()
	if err := c.Connect(r.onConnect, r.onMessage, r.onDisconnect); err != nil {
		t.Fatalf("connect returned error: %v", err)
	}
}

func (r *recorder) waitConnect(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.connected:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for onConnect")
		return nil
	}
}

func (r *recorder) waitMessage(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-r.message:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for onMessage")
		return ""
	}
}

func (r *recorder) waitDisconnect(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.disconnected:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for onDisconnect")
		return nil
	}
}

// result waits for a single error-valued callback.
func result(t *testing.T, ch <-chan error, what string) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func waitDone(t *testing.T, c *transports.WebSocketClient) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("client did not finish, state %s", c.State())
	}
}

func closeClient(t *testing.T, c *transports.WebSocketClient) error {
	t.Helper()
	ch := make(chan error, 1)
	c.Close(func(err error) { ch <- err })
	return result(t, ch, "onClose")
}
