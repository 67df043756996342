package quicstream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/quic-go/quic-go"

	"github.com/kborders/synergo/internal/auth"
	"github.com/kborders/synergo/transport"
)

// authExporterLabel binds the derived auth token to this connection's TLS
// session, the same way the teacher's session transport does, so a passkey
// leaked later cannot be replayed against a recorded handshake.
const authExporterLabel = "synergo-auth-v1"

var errAuthMismatch = errors.New("passkey auth mismatch")

func exportKeyingMaterial(qconn *quic.Conn) ([]byte, error) {
	tlsState := qconn.ConnectionState().TLS
	material, err := tlsState.ExportKeyingMaterial(authExporterLabel, nil, 32)
	if err != nil {
		return nil, fmt.Errorf("quicstream: export keying material: %w", err)
	}
	return material, nil
}

func authToken(qconn *quic.Conn, passkey []byte) ([32]byte, error) {
	material, err := exportKeyingMaterial(qconn)
	if err != nil {
		return [32]byte{}, err
	}
	return auth.ComputeAuthToken(passkey, material), nil
}

// DialAuthenticated is Dial plus a passkey handshake: immediately after
// opening the stream, the client writes an HMAC token derived from the
// passkey and this connection's TLS exporter material. Pair with
// ListenAuthenticated on the server side.
func DialAuthenticated(ctx context.Context, addr string, passkey []byte) (transport.Stream, error) {
	qconn, err := quic.DialAddr(ctx, addr, ClientTLSConfig(), nil)
	if err != nil {
		return nil, err
	}
	s, err := qconn.OpenStreamSync(ctx)
	if err != nil {
		qconn.CloseWithError(0, "open stream failed")
		return nil, err
	}

	token, err := authToken(qconn, passkey)
	if err != nil {
		qconn.CloseWithError(0, "auth failed")
		return nil, err
	}
	if _, err := s.Write(token[:]); err != nil {
		qconn.CloseWithError(0, "auth write failed")
		return nil, err
	}

	return stream{qconn: qconn, s: s}, nil
}

// authListener wraps a quic.Listener, rejecting any accepted connection
// whose opening 32 bytes don't match the expected passkey-derived token.
type authListener struct {
	ln      *quic.Listener
	passkey []byte
}

// ListenAuthenticated is Listen plus passkey verification on every accepted
// connection.
func ListenAuthenticated(addr string, passkey []byte) (transport.Listener, error) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	ln, err := quic.ListenAddr(addr, ServerTLSConfig(cert), nil)
	if err != nil {
		return nil, err
	}
	return &authListener{ln: ln, passkey: passkey}, nil
}

func (l *authListener) Accept(ctx context.Context) (transport.Stream, error) {
	qconn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	s, err := qconn.AcceptStream(ctx)
	if err != nil {
		qconn.CloseWithError(0, "accept stream failed")
		return nil, err
	}

	material, err := exportKeyingMaterial(qconn)
	if err != nil {
		qconn.CloseWithError(0, "auth failed")
		return nil, err
	}
	var got [32]byte
	if _, err := io.ReadFull(s, got[:]); err != nil {
		qconn.CloseWithError(1, "auth read failed")
		return nil, fmt.Errorf("quicstream: read auth token: %w", err)
	}
	if !auth.VerifyAuthToken(l.passkey, material, got) {
		qconn.CloseWithError(1, "auth mismatch")
		return nil, fmt.Errorf("quicstream: %w", errAuthMismatch)
	}

	return stream{qconn: qconn, s: s}, nil
}

func (l *authListener) Addr() string { return l.ln.Addr().String() }
func (l *authListener) Close() error { return l.ln.Close() }
