package transports

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestNetResolver(t *testing.T) {
	r := NewNetResolver()
	ctx := context.Background()

	addrs, err := r.Resolve(ctx, "127.0.0.1", "8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "127.0.0.1:8080" {
		t.Errorf("unexpected addresses %v", addrs)
	}

	addrs, err = r.Resolve(ctx, "::1", "443")
	if err != nil {
		t.Fatalf("unexpected error for ipv6 literal: %v", err)
	}
	if addrs[0] != "[::1]:443" {
		t.Errorf("unexpected address %v", addrs)
	}

	tests := []struct {
		name, host, port string
	}{
		{"empty host", "", "80"},
		{"empty port", "127.0.0.1", ""},
		{"out of range", "127.0.0.1", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(ctx, tt.host, tt.port)
			var resolveErr *ResolveError
			if !errors.As(err, &resolveErr) {
				t.Fatalf("expected *ResolveError, got %v", err)
			}
		})
	}
}

func TestConnector_FallsBackToNextCandidate(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	dead, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := dead.Addr().String()
	dead.Close()

	c := &Connector{Timeout: time.Second}
	conn, err := c.Connect(context.Background(), []string{deadAddr, l.Addr().String()})
	if err != nil {
		t.Fatalf("expected fallback to live candidate, got %v", err)
	}
	conn.Close()

	_, err = c.Connect(context.Background(), []string{deadAddr})
	var connErr *ConnectError
	if !errors.As(err, &connErr) || connErr.Kind != ConnectRefused || connErr.Address != deadAddr {
		t.Fatalf("expected refused error for %s, got %v", deadAddr, err)
	}

	_, err = c.Connect(context.Background(), nil)
	if !errors.As(err, &connErr) || connErr.Kind != ConnectUnreachable {
		t.Fatalf("expected unreachable for empty candidates, got %v", err)
	}
}

func TestConnector_ExpiredContextIsTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	c := &Connector{}
	_, err := c.Connect(ctx, []string{"127.0.0.1:9"})
	var connErr *ConnectError
	if !errors.As(err, &connErr) || connErr.Kind != ConnectTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestConnector_TimeoutBoundsDial(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	c := &Connector{Timeout: time.Nanosecond}
	_, err = c.Connect(context.Background(), []string{l.Addr().String()})
	var connErr *ConnectError
	if !errors.As(err, &connErr) || connErr.Kind != ConnectTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectErrorKind
	}{
		{"deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), ConnectTimeout},
		{"net timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}, ConnectTimeout},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ConnectRefused},
		{"unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ENETUNREACH}, ConnectUnreachable},
		{"other", errors.New("boom"), ConnectUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyConnectError(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTLSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want TLSErrorKind
	}{
		{"hostname", x509.HostnameError{Host: "example.org"}, TLSHostnameMismatch},
		{"unknown authority", x509.UnknownAuthorityError{}, TLSCertInvalid},
		{"expired", x509.CertificateInvalidError{Reason: x509.Expired}, TLSCertInvalid},
		{"other", errors.New("remote error: tls: handshake failure"), TLSHandshakeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTLSError(tt.err); got != tt.want {
				t.Errorf("classifyTLSError() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadTrustStore(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadTrustStore(""); !errors.Is(err, ErrInvalidTrustStore) {
		t.Errorf("empty path: expected ErrInvalidTrustStore, got %v", err)
	}
	if _, err := LoadTrustStore(filepath.Join(dir, "missing.pem")); !errors.Is(err, ErrInvalidTrustStore) {
		t.Errorf("missing file: expected ErrInvalidTrustStore, got %v", err)
	}

	junk := filepath.Join(dir, "junk.pem")
	if err := os.WriteFile(junk, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTrustStore(junk); !errors.Is(err, ErrInvalidTrustStore) {
		t.Errorf("junk file: expected ErrInvalidTrustStore, got %v", err)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		secure     bool
		host, port string
		path       string
		want       string
	}{
		{false, "127.0.0.1", "8080", "/", "ws://127.0.0.1:8080/"},
		{true, "ltnm.learncppthroughprojects.com", "443", "/network-events", "wss://ltnm.learncppthroughprojects.com:443/network-events"},
		{false, "::1", "80", "", "ws://[::1]:80/"},
		{true, "echo.websocket.org", "443", "/feed?token=abc", "wss://echo.websocket.org:443/feed?token=abc"},
	}
	for _, tt := range tests {
		if got := EndpointURL(tt.secure, tt.host, tt.port, tt.path).String(); got != tt.want {
			t.Errorf("EndpointURL() = %s, want %s", got, tt.want)
		}
	}
}

func TestStrand_RunsTasksInOrder(t *testing.T) {
	s := NewStrand()

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 100 {
		s.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	var nested bool
	s.Await(func() {
		// posting from the strand itself must not block
		s.Post(func() { nested = true })
	})
	s.Await(func() {})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("expected 100 tasks, ran %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
	if !nested {
		t.Error("nested post did not run")
	}

	s.Stop()
	<-s.Done()
}

func TestStrand_StopDrainsThenRefuses(t *testing.T) {
	s := NewStrand()

	block := make(chan struct{})
	ran := make(chan struct{}, 1)
	s.Post(func() { <-block })
	s.Post(func() { ran <- struct{}{} })
	s.Stop()

	if s.Post(func() {}) {
		t.Error("post after stop should be refused")
	}
	if s.Await(func() {}) {
		t.Error("await after stop should be refused")
	}

	close(block)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task did not run after stop")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("strand did not exit")
	}
}

func TestStateString(t *testing.T) {
	if StateTLSHandshaking.String() != "tls-handshaking" || State(99).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if !StateConnecting.settingUp() || StateOpen.settingUp() || StateIdle.settingUp() {
		t.Error("unexpected settingUp classification")
	}
}
