// Package quicstream is an opt-in transport.Stream/Listener implementation
// over QUIC: one bidirectional stream per session, wrapped in TLS 1.3 with
// an ephemeral self-signed certificate. Grounded on the teacher's
// internal/transport tls.go and streams.go, simplified to a single stream
// per connection since the Synergy wire format multiplexes everything onto
// one framed byte stream already (unlike the teacher's control/data split).
package quicstream

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/kborders/synergo/transport"
)

const alpnProtocol = "synergo-v1"

// GenerateSelfSignedCert creates an ephemeral in-memory certificate valid
// for 24 hours.
func GenerateSelfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber: serial,
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{certDER}, PrivateKey: key}, nil
}

func ServerTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{alpnProtocol},
		MinVersion:   tls.VersionTLS13,
	}
}

// ClientTLSConfig skips certificate verification: this package provides
// transport encryption only, not peer authentication (out of the core's
// scope per §1; an application layering its own auth on top supplies a
// real cert chain or its own verification callback).
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{alpnProtocol},
		MinVersion:         tls.VersionTLS13,
	}
}

// Dialer adapts Dial to transport.Dialer.
type Dialer struct{}

func (Dialer) Dial(ctx context.Context, addr string) (transport.Stream, error) {
	return Dial(ctx, addr)
}

type stream struct {
	qconn *quic.Conn
	s     *quic.Stream
}

func (s stream) Read(p []byte) (int, error)  { return s.s.Read(p) }
func (s stream) Write(p []byte) (int, error) { return s.s.Write(p) }
func (s stream) Close() error {
	s.s.CancelRead(0)
	s.s.Close()
	return s.qconn.CloseWithError(0, "closed")
}
func (s stream) SetReadDeadline(t time.Time) error  { return s.s.SetReadDeadline(t) }
func (s stream) SetWriteDeadline(t time.Time) error { return s.s.SetWriteDeadline(t) }

// Dial connects to addr and opens the single session stream.
func Dial(ctx context.Context, addr string) (transport.Stream, error) {
	qconn, err := quic.DialAddr(ctx, addr, ClientTLSConfig(), nil)
	if err != nil {
		return nil, err
	}
	s, err := qconn.OpenStreamSync(ctx)
	if err != nil {
		qconn.CloseWithError(0, "open stream failed")
		return nil, err
	}
	return stream{qconn: qconn, s: s}, nil
}

type listener struct {
	ln *quic.Listener
}

// Listen binds addr with an ephemeral self-signed certificate.
func Listen(addr string) (transport.Listener, error) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	ln, err := quic.ListenAddr(addr, ServerTLSConfig(cert), nil)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln}, nil
}

func (l *listener) Accept(ctx context.Context) (transport.Stream, error) {
	qconn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	s, err := qconn.AcceptStream(ctx)
	if err != nil {
		qconn.CloseWithError(0, "accept stream failed")
		return nil, err
	}
	return stream{qconn: qconn, s: s}, nil
}

func (l *listener) Addr() string { return l.ln.Addr().String() }
func (l *listener) Close() error { return l.ln.Close() }
