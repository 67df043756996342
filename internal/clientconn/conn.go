// Package clientconn drives the client side of one connection: the
// AwaitingHello handshake and the Connected event loop that answers
// QueryInfo/KeepAlive, surfaces input, screen-saver and clipboard messages as
// session events, and ends on ServerClose or a server error code.
// Grounded on the teacher's internal/client.Client.ioLoop select loop,
// adapted from a control/data stream split to the single framed stream this
// wire format uses.
package clientconn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kborders/synergo/internal/clipboard"
	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/session"
	"github.com/kborders/synergo/transport"
)

// Config holds the handshake identity and heartbeat timing for one
// connection.
type Config struct {
	Name      string
	Keepalive time.Duration // 0 uses session.DefaultKeepalive
	Timeout   time.Duration // 0 uses session.DefaultTimeout
}

// Conn is one client-side connection to a server.
type Conn struct {
	stream transport.Stream
	cfg    Config
	clip   *clipboard.Assembler

	mu    sync.Mutex
	state session.State
	geom  session.Geometry

	events chan any
}

// New wraps an already-established stream. Call Run to perform the
// handshake and drive the event loop.
func New(stream transport.Stream, cfg Config) *Conn {
	if cfg.Keepalive == 0 {
		cfg.Keepalive = session.DefaultKeepalive
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = session.DefaultTimeout
	}
	return &Conn{
		stream: stream,
		cfg:    cfg,
		clip:   clipboard.New(0),
		state:  session.AwaitingHello,
		events: make(chan any, 64),
	}
}

// SetGeometry updates the screen geometry this connection reports in
// response to QueryInfo. Safe to call concurrently with Run.
func (c *Conn) SetGeometry(g session.Geometry) {
	c.mu.Lock()
	c.geom = g
	c.mu.Unlock()
}

// Stream returns the underlying transport stream, for callers that need
// transport-specific diagnostics (e.g. quicstream.Stats) alongside the
// connection.
func (c *Conn) Stream() transport.Stream { return c.stream }

// State reports the current point in the connection lifecycle.
func (c *Conn) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events yields CursorEnter, CursorLeave, MouseMove, MouseRelMove,
// MouseButton, MouseWheel, KeyEvent, ScreenSaverChanged, ClipboardChanged,
// and GrabClipboardReceived values as they arrive, terminated by exactly one
// Disconnected before the channel closes.
func (c *Conn) Events() <-chan any { return c.events }

// Run performs the handshake then drives the connection until it closes or
// ctx is cancelled.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.events)

	if err := c.handshake(); err != nil {
		c.setState(session.Closed)
		c.events <- session.Disconnected{Reason: err}
		return err
	}

	err := c.eventLoop(ctx)
	c.setState(session.Closed)
	c.events <- session.Disconnected{Reason: err}
	return err
}

func (c *Conn) setState(s session.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// handshake implements the AwaitingHello state: receive Hello, version-gate
// it, and reply HelloBack.
func (c *Conn) handshake() error {
	msg, err := protocol.ReadMessage(c.stream)
	if err != nil {
		return fmt.Errorf("clientconn: read hello: %w", err)
	}
	hello, ok := msg.(*protocol.Hello)
	if !ok {
		return fmt.Errorf("clientconn: %w: expected Hello, got %T", protocol.ErrUnexpectedMessage, msg)
	}
	if hello.Major != protocol.Major || hello.Minor < protocol.MinMinor {
		return protocol.ErrVersion
	}
	if err := protocol.WriteMessage(c.stream, &protocol.HelloBack{
		Major: protocol.Major,
		Minor: protocol.Minor,
		Name:  c.cfg.Name,
	}); err != nil {
		return fmt.Errorf("clientconn: write hello back: %w", err)
	}
	c.setState(session.Connected)
	return nil
}

type readResult struct {
	msg any
	err error
}

// eventLoop implements the Connected state. A single reader goroutine feeds
// decoded messages to the select loop, which also drives the keepalive
// ticker and timeout timer, matching the teacher's ioLoop structure of one
// permanent reader goroutine per stream.
func (c *Conn) eventLoop(ctx context.Context) error {
	hb := session.NewHeartbeat(c.cfg.Keepalive, c.cfg.Timeout)
	defer hb.Stop()

	readCh := make(chan readResult, 1)
	go func() {
		for {
			msg, err := protocol.ReadMessage(c.stream)
			readCh <- readResult{msg, err}
			if err != nil {
				return
			}
		}
	}()

	sweepTicker := time.NewTicker(c.cfg.Keepalive)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-hb.Tick():
			// Bound the write so a peer that has stopped reading cannot
			// hold the loop past the heartbeat timeout.
			c.stream.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
			err := protocol.WriteMessage(c.stream, &protocol.KeepAlive{})
			c.stream.SetWriteDeadline(time.Time{})
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return session.ErrTimeout
			}
			if err != nil {
				return fmt.Errorf("clientconn: write keepalive: %w", err)
			}

		case <-hb.Expired():
			return session.ErrTimeout

		case <-sweepTicker.C:
			c.clip.Sweep(c.cfg.Keepalive)

		case r := <-readCh:
			if r.err != nil {
				return fmt.Errorf("clientconn: read: %w", r.err)
			}
			hb.Reset()
			done, err := c.dispatch(r.msg)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// dispatch handles one decoded message. done is true once ServerClose is
// received.
func (c *Conn) dispatch(msg any) (done bool, err error) {
	switch m := msg.(type) {
	case *protocol.QueryInfo:
		c.mu.Lock()
		g := c.geom
		c.mu.Unlock()
		info := &protocol.Info{
			X: 0, Y: 0,
			W: uint16(g.Width), H: uint16(g.Height),
			WarpZone: uint16(g.WarpZone),
			CursorX:  int16(g.CursorX), CursorY: int16(g.CursorY),
		}
		return false, protocol.WriteMessage(c.stream, info)

	case *protocol.KeepAlive:
		return false, protocol.WriteMessage(c.stream, &protocol.KeepAlive{})

	case *protocol.InfoAck, *protocol.ResetOptions, *protocol.NoOp, *protocol.SetDeviceOptions:
		// Acknowledged/applied silently; device options land on a platform
		// input layer this package does not own.
		return false, nil

	case *protocol.CursorEnter:
		c.events <- session.CursorEnter{X: int(m.X), Y: int(m.Y), Seq: m.Seq, Mask: m.Mask}

	case *protocol.CursorLeave:
		c.events <- session.CursorLeave{}

	case *protocol.MouseMove:
		c.events <- session.MouseMove{X: int(m.X), Y: int(m.Y)}

	case *protocol.MouseRelMove:
		c.events <- session.MouseRelMove{DX: int(m.DX), DY: int(m.DY)}

	case *protocol.MouseButton:
		c.events <- session.MouseButton{Press: m.Press, Button: m.Button}

	case *protocol.MouseWheel:
		c.events <- session.MouseWheel{XDelta: int(m.XDelta), YDelta: int(m.YDelta)}

	case *protocol.KeyDown:
		c.events <- session.KeyEvent{ID: m.ID, Mask: m.Mask, Button: m.Button, Kind: session.KeyDown}

	case *protocol.KeyUp:
		c.events <- session.KeyEvent{ID: m.ID, Mask: m.Mask, Button: m.Button, Kind: session.KeyUp}

	case *protocol.KeyRepeat:
		c.events <- session.KeyEvent{ID: m.ID, Mask: m.Mask, Button: m.Button, Kind: session.KeyRepeat, RepeatCount: m.Count}

	case *protocol.ScreenSaver:
		c.events <- session.ScreenSaverChanged{Active: m.Active}

	case *protocol.GrabClipboard:
		c.events <- session.GrabClipboardReceived{ID: m.ID, Seq: m.Seq}

	case *protocol.SetClipboard:
		changed, err := c.clip.Store(m)
		if err != nil {
			return false, fmt.Errorf("clientconn: clipboard: %w", err)
		}
		if changed != nil {
			c.events <- *changed
		}

	case *protocol.ServerClose:
		return true, nil

	case *protocol.ErrorUnknownClient:
		return true, &session.RemoteError{Code: "EUNK"}
	case *protocol.ErrorBusy:
		return true, &session.RemoteError{Code: "EBSY"}
	case *protocol.ErrorBadClient:
		return true, &session.RemoteError{Code: "EBAD"}

	case *protocol.Unknown:
		// Forward compatibility: unknown codes never cause an error.

	default:
		// Unreachable given the fixed decode table, but never fatal.
	}
	return false, nil
}
