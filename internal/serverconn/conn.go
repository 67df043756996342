// Package serverconn drives the server side of one client connection: the
// AwaitingHelloBack/AwaitingInfo handshake and the Connected phase that
// accepts Info updates and clipboard transfers from the client, and carries
// outbound CursorEnter/CursorLeave/input/clipboard messages the router
// hands it. Grounded on the teacher's internal/session.Session.Run event
// loop, split here into one instance per connection (the teacher's Session
// is itself already per-connection; the router package plays the role of
// the teacher's single shared PTY fan-out).
package serverconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kborders/synergo/internal/clipboard"
	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/session"
	"github.com/kborders/synergo/transport"
)

// Registry resolves a client name against the layout and tracks which names
// currently have a live connection, implemented by the router.
type Registry interface {
	// Lookup reports whether name is a configured client.
	Lookup(name string) bool
	// Claim marks name connected, or reports false if already connected.
	Claim(name string) bool
	// Release frees name for a future connection.
	Release(name string)
}

// Default bound on the outbound queue (§4.5); exceeding it is a
// SessionError::Backpressure, not a dropped message.
const DefaultOutboundQueueCap = 4096

// Default bound on the inbound event queue the router drains (§4.5); once
// full, Send-side backpressure naturally stops this connection's reader,
// which starves the peer via ordinary TCP backpressure.
const DefaultInboundQueueCap = 1024

// Config holds per-connection handshake and heartbeat settings.
type Config struct {
	Registry           Registry
	Keepalive          time.Duration // 0 uses session.DefaultKeepalive
	Timeout            time.Duration // 0 uses session.DefaultTimeout
	DeviceOptions      []protocol.OptionPair
	OutboundQueueCap   int // 0 uses DefaultOutboundQueueCap
	InboundQueueCap    int // 0 uses DefaultInboundQueueCap
}

// Conn is one server-side connection, representing a single named client
// screen once past the handshake.
type Conn struct {
	stream transport.Stream
	cfg    Config
	clip   *clipboard.Assembler

	mu      sync.Mutex
	state   session.State
	name    string
	geom    session.Geometry
	writeMu sync.Mutex

	events   chan any
	outbound chan any
	outErr   chan error
	ready    chan struct{}
}

// New wraps an already-accepted stream. Call Run to perform the handshake
// and drive the connection.
func New(stream transport.Stream, cfg Config) *Conn {
	if cfg.Keepalive == 0 {
		cfg.Keepalive = session.DefaultKeepalive
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = session.DefaultTimeout
	}
	if cfg.OutboundQueueCap == 0 {
		cfg.OutboundQueueCap = DefaultOutboundQueueCap
	}
	if cfg.InboundQueueCap == 0 {
		cfg.InboundQueueCap = DefaultInboundQueueCap
	}
	return &Conn{
		stream:   stream,
		cfg:      cfg,
		clip:     clipboard.New(0),
		state:    session.AwaitingHelloBack,
		events:   make(chan any, cfg.InboundQueueCap),
		outbound: make(chan any, cfg.OutboundQueueCap),
		outErr:   make(chan error, 1),
		ready:    make(chan struct{}),
	}
}

// Ready closes once the handshake completes successfully (the connection
// reaches Connected and Name is valid). It never closes if the handshake
// fails.
func (c *Conn) Ready() <-chan struct{} { return c.ready }

// Close closes the underlying stream, unblocking any in-progress read or
// write and causing Run to return.
func (c *Conn) Close() error {
	return c.stream.Close()
}

// Name returns the client's name, valid once the handshake completes.
func (c *Conn) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// State reports the current point in the connection lifecycle.
func (c *Conn) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Geometry returns the client's last-reported screen geometry.
func (c *Conn) Geometry() session.Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.geom
}

// Events yields InfoUpdated, ClipboardChanged, GrabClipboardReceived, and
// ScreenSaverChanged values received from the client, terminated by exactly
// one Disconnected before the channel closes.
func (c *Conn) Events() <-chan any { return c.events }

// Send queues one outbound protocol message (CursorEnter, CursorLeave,
// MouseMove, MouseRelMove, MouseButton, MouseWheel, KeyDown/Up/Repeat,
// ScreenSaver, GrabClipboard, SetClipboard, ...) for delivery to the
// client. Returns session.ErrBackpressure without blocking if the
// connection's outbound queue is full; the caller (the router) is expected
// to close the connection on that error.
func (c *Conn) Send(msg any) error {
	select {
	case c.outbound <- msg:
		return nil
	default:
		return session.ErrBackpressure
	}
}

func (c *Conn) writeLocked(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteMessage(c.stream, msg)
}

// Run drives the handshake then the connection until it closes or ctx is
// cancelled. Releases the claimed name from the Registry on return.
func (c *Conn) Run(ctx context.Context) error {
	defer close(c.events)

	name, err := c.handshake()
	if err != nil {
		c.setState(session.Closed)
		c.events <- session.Disconnected{Reason: err}
		return err
	}
	defer c.cfg.Registry.Release(name)
	close(c.ready)

	err = c.eventLoop(ctx)
	c.setState(session.Closed)
	c.events <- session.Disconnected{Reason: err}
	return err
}

func (c *Conn) setState(s session.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// handshake implements AwaitingHelloBack then AwaitingInfo.
func (c *Conn) handshake() (string, error) {
	if err := c.writeLocked(&protocol.Hello{Major: protocol.Major, Minor: protocol.Minor}); err != nil {
		return "", fmt.Errorf("serverconn: write hello: %w", err)
	}

	msg, err := protocol.ReadMessage(c.stream)
	if err != nil {
		return "", fmt.Errorf("serverconn: read hello back: %w", err)
	}
	hb, ok := msg.(*protocol.HelloBack)
	if !ok {
		return "", fmt.Errorf("serverconn: %w: expected HelloBack, got %T", protocol.ErrUnexpectedMessage, msg)
	}

	if !c.cfg.Registry.Lookup(hb.Name) {
		c.writeLocked(&protocol.ErrorUnknownClient{})
		return "", &session.RemoteError{Code: "EUNK"}
	}
	if !c.cfg.Registry.Claim(hb.Name) {
		c.writeLocked(&protocol.ErrorBusy{})
		return "", &session.RemoteError{Code: "EBSY"}
	}

	c.mu.Lock()
	c.name = hb.Name
	c.state = session.AwaitingInfo
	c.mu.Unlock()

	if err := c.writeLocked(&protocol.QueryInfo{}); err != nil {
		c.cfg.Registry.Release(hb.Name)
		return "", fmt.Errorf("serverconn: write query info: %w", err)
	}

	msg, err = protocol.ReadMessage(c.stream)
	if err != nil {
		c.cfg.Registry.Release(hb.Name)
		return "", fmt.Errorf("serverconn: read info: %w", err)
	}
	info, ok := msg.(*protocol.Info)
	if !ok {
		c.writeLocked(&protocol.ErrorBadClient{})
		c.cfg.Registry.Release(hb.Name)
		return "", &session.RemoteError{Code: "EBAD"}
	}

	c.mu.Lock()
	c.geom = session.Geometry{
		Width: int(info.W), Height: int(info.H), WarpZone: int(info.WarpZone),
		CursorX: int(info.CursorX), CursorY: int(info.CursorY),
	}
	c.mu.Unlock()

	if err := c.writeLocked(&protocol.InfoAck{}); err != nil {
		c.cfg.Registry.Release(hb.Name)
		return "", fmt.Errorf("serverconn: write info ack: %w", err)
	}
	if err := c.writeLocked(&protocol.ResetOptions{}); err != nil {
		c.cfg.Registry.Release(hb.Name)
		return "", fmt.Errorf("serverconn: write reset options: %w", err)
	}
	if err := c.writeLocked(&protocol.SetDeviceOptions{Options: c.cfg.DeviceOptions}); err != nil {
		c.cfg.Registry.Release(hb.Name)
		return "", fmt.Errorf("serverconn: write device options: %w", err)
	}

	c.setState(session.Connected)
	return hb.Name, nil
}

type readResult struct {
	msg any
	err error
}

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

	stopWriter := make(chan struct{})
	defer close(stopWriter)
	go func() {
		for {
			select {
			case msg := <-c.outbound:
				if err := c.writeLocked(msg); err != nil {
					select {
					case c.outErr <- err:
					default:
					}
					return
				}
			case <-stopWriter:
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

		case err := <-c.outErr:
			return fmt.Errorf("serverconn: write: %w", err)

		case <-hb.Tick():
			if err := c.writeLocked(&protocol.KeepAlive{}); err != nil {
				return fmt.Errorf("serverconn: write keepalive: %w", err)
			}

		case <-hb.Expired():
			return session.ErrTimeout

		case <-sweepTicker.C:
			c.clip.Sweep(c.cfg.Keepalive)

		case r := <-readCh:
			if r.err != nil {
				return fmt.Errorf("serverconn: read: %w", r.err)
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

// dispatch handles one message received from the client while Connected.
func (c *Conn) dispatch(msg any) (done bool, err error) {
	switch m := msg.(type) {
	case *protocol.Info:
		c.mu.Lock()
		c.geom = session.Geometry{
			Width: int(m.W), Height: int(m.H), WarpZone: int(m.WarpZone),
			CursorX: int(m.CursorX), CursorY: int(m.CursorY),
		}
		g := c.geom
		c.mu.Unlock()
		c.events <- session.InfoUpdated{Geometry: g}

	case *protocol.SetClipboard:
		changed, err := c.clip.Store(m)
		if err != nil {
			return false, fmt.Errorf("serverconn: clipboard: %w", err)
		}
		if changed != nil {
			c.events <- *changed
		}

	case *protocol.GrabClipboard:
		c.events <- session.GrabClipboardReceived{ID: m.ID, Seq: m.Seq}

	case *protocol.ScreenSaver:
		c.events <- session.ScreenSaverChanged{Active: m.Active}

	case *protocol.KeepAlive, *protocol.NoOp:
		// Heartbeat only; hb.Reset already ran.

	case *protocol.Unknown:
		// Forward compatibility: unknown codes never cause an error.

	default:
		return false, fmt.Errorf("serverconn: %w: unexpected %T while connected", protocol.ErrUnexpectedMessage, msg)
	}
	return false, nil
}
