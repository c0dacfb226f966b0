package transports

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
)

// -----------------------------------------------------------------------------

// LoadTrustStore reads a PEM CA bundle into a certificate pool.
func LoadTrustStore(caCertFile string) (*x509.CertPool, error) {
	if caCertFile == "" {
		return nil, fmt.Errorf("%w: no ca bundle configured", ErrInvalidTrustStore)
	}

	pem, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrustStore, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no certificate found in %s", ErrInvalidTrustStore, caCertFile)
	}
	return pool, nil
}

// -----------------------------------------------------------------------------

// TLSHandshaker upgrades a raw stream to TLS, verifying the peer chain against
// RootCAs and the certificate name against the target host.
type TLSHandshaker struct {
	RootCAs *x509.CertPool
}

// -----------------------------------------------------------------------------

// Handshake runs the client handshake. On failure the raw stream is closed and
// a *TLSError is returned.
func (h *TLSHandshaker) Handshake(ctx context.Context, raw net.Conn, host string) (*tls.Conn, error) {
	conn := tls.Client(raw, &tls.Config{
		RootCAs:    h.RootCAs,
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})

	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, &TLSError{Kind: classifyTLSError(err), Host: host, Err: err}
	}
	return conn, nil
}

// -----------------------------------------------------------------------------

func classifyTLSError(err error) TLSErrorKind {
	var (
		hostErr      x509.HostnameError
		authorityErr x509.UnknownAuthorityError
		invalidErr   x509.CertificateInvalidError
		verifyErr    *tls.CertificateVerificationError
	)

	switch {
	case errors.As(err, &hostErr):
		return TLSHostnameMismatch
	case errors.As(err, &authorityErr), errors.As(err, &invalidErr), errors.As(err, &verifyErr):
		return TLSCertInvalid
	default:
		return TLSHandshakeFailed
	}
}
