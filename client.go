package synergo

import (
	"context"
	"time"

	"github.com/kborders/synergo/internal/clientconn"
	"github.com/kborders/synergo/internal/session"
	"github.com/kborders/synergo/transport"
	"github.com/kborders/synergo/transport/nettcp"
)

// ClientOptions configures Connect. Keepalive and Timeout default to
// session.DefaultKeepalive/DefaultTimeout when zero.
type ClientOptions struct {
	Name      string
	Width     int
	Height    int
	Keepalive time.Duration
	Timeout   time.Duration

	// Dialer supplies the transport. nettcp.Dialer{} is used if nil.
	Dialer transport.Dialer
}

// Session is a connected client screen. Call Run in its own goroutine, then
// drain RecvEvent until it reports ok == false; Close stops Run early.
type Session struct {
	conn *clientconn.Conn
	run  func(context.Context) error
	ctx  context.Context
	stop context.CancelFunc
}

// Connect dials addr and runs the client handshake, reporting opt.Width x
// opt.Height as this screen's geometry. The returned Session's Run method
// must be started (in its own goroutine) before events arrive.
func Connect(ctx context.Context, addr string, opt ClientOptions) (*Session, error) {
	dialer := opt.Dialer
	if dialer == nil {
		dialer = nettcp.Dialer{}
	}
	stream, err := dialer.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}

	conn := clientconn.New(stream, clientconn.Config{
		Name:      opt.Name,
		Keepalive: opt.Keepalive,
		Timeout:   opt.Timeout,
	})
	conn.SetGeometry(session.Geometry{Width: opt.Width, Height: opt.Height})

	sessCtx, stop := context.WithCancel(ctx)
	return &Session{conn: conn, run: conn.Run, ctx: sessCtx, stop: stop}, nil
}

// Run drives the connection until it closes, the context passed to Connect
// is cancelled, or Close is called. Safe to call exactly once, typically in
// its own goroutine.
func (s *Session) Run() error {
	return s.run(s.ctx)
}

// RecvEvent blocks for the next ClientEvent. The second return value is
// false once the session has terminated and no further events will arrive;
// the final event observed is always a session.Disconnected.
func (s *Session) RecvEvent() (any, bool) {
	ev, ok := <-s.conn.Events()
	return ev, ok
}

// Close ends the session, unblocking Run and any pending RecvEvent.
func (s *Session) Close() {
	s.stop()
}

// Stream returns the underlying transport stream, for callers that need
// transport-specific diagnostics (e.g. quicstream.Stats) alongside RecvEvent.
func (s *Session) Stream() transport.Stream { return s.conn.Stream() }
