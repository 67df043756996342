// Package router is the server-only Event Router: it consults the Layout
// to pick the active screen for host input, forwards encoded messages to
// that screen's connection, and fans client-originated events back to the
// application as a single ServerEvent stream. Grounded on the teacher's
// internal/session.Session.Run select loop, generalized from "one shared
// PTY, one connection" to "many named connections, one active screen at a
// time" and composed with the adapted internal/coalesce batcher for
// outbound relative motion.
package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/kborders/synergo/internal/clipboard"
	"github.com/kborders/synergo/internal/coalesce"
	"github.com/kborders/synergo/internal/layout"
	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/serverconn"
	"github.com/kborders/synergo/internal/session"
)

// connHandle is what the router keeps per named connection.
type connHandle struct {
	conn   *serverconn.Conn
	cancel context.CancelFunc
}

// Router owns the active-screen pointer (via Layout) and the set of live
// named connections. It is the sole mutator of both; no locks are needed on
// the hot path beyond the registry mutex guarding connection bookkeeping.
type Router struct {
	layout *layout.Layout
	coal   *coalesce.Coalescer

	mu      sync.Mutex
	conns   map[string]*connHandle
	clipSeq uint32

	events chan session.ServerEvent
}

// New creates a Router bound to an already-built Layout. The Router
// implements serverconn.Registry directly, so it can be passed as
// serverconn.Config.Registry for every accepted connection.
func New(lo *layout.Layout) *Router {
	return &Router{
		layout: lo,
		coal:   coalesce.New(),
		conns:  make(map[string]*connHandle),
		events: make(chan session.ServerEvent, 4096),
	}
}

// --- serverconn.Registry ---

func (r *Router) Lookup(name string) bool {
	_, ok := r.layout.Client(name)
	return ok
}

func (r *Router) Claim(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[name]; exists {
		return false
	}
	r.conns[name] = nil // reserved; Attach fills it in once handshake completes
	return true
}

func (r *Router) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, name)
}

// --- Connection lifecycle ---

// Attach runs a newly accepted connection's Run loop and pumps its Events
// into the router's aggregated ServerEvent stream, tagging each with name.
// Attach blocks until the connection's Run returns.
func (r *Router) Attach(ctx context.Context, conn *serverconn.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-conn.Ready():
			r.mu.Lock()
			if h, ok := r.conns[conn.Name()]; ok && h == nil {
				r.conns[conn.Name()] = &connHandle{conn: conn, cancel: cancel}
			}
			r.mu.Unlock()
		case <-connCtx.Done():
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range conn.Events() {
			r.events <- session.ServerEvent{ClientName: conn.Name(), Event: ev}
		}
	}()

	err := conn.Run(connCtx)
	<-done
	return err
}

// Events is the aggregated, arrival-ordered stream of client-originated
// events the application consumes.
func (r *Router) Events() <-chan session.ServerEvent { return r.events }

// Shutdown cancels every live connection's context, propagating closure to
// their Run loops. Attach's callers are expected to return shortly after.
func (r *Router) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.conns {
		if h != nil {
			h.cancel()
		}
	}
}

// --- Host input dispatch ---

// Dispatch routes one host input sample according to the active screen. A
// server-active screen surfaces the sample as a session.LocalEvent on the
// Events stream instead of sending it anywhere.
func (r *Router) Dispatch(ev session.InputEvent) error {
	switch e := ev.(type) {
	case session.MoveDelta:
		return r.dispatchMove(e.DX, e.DY)
	case session.ButtonEvent:
		return r.sendToActive(&protocol.MouseButton{Press: e.Press, Button: e.Button})
	case session.WheelEvent:
		return r.sendToActive(&protocol.MouseWheel{XDelta: int16(e.XDelta), YDelta: int16(e.YDelta)})
	case session.KeyInputEvent:
		return r.sendToActive(keyMessage(e))
	case session.ClipboardChange:
		return r.broadcastClipboard(e)
	default:
		return fmt.Errorf("router: unsupported input event %T", ev)
	}
}

func keyMessage(e session.KeyInputEvent) any {
	switch e.Kind {
	case session.KeyUp:
		return &protocol.KeyUp{ID: e.ID, Mask: e.Mask, Button: e.Button}
	case session.KeyRepeat:
		return &protocol.KeyRepeat{ID: e.ID, Mask: e.Mask, Count: e.RepeatCount, Button: e.Button}
	default:
		return &protocol.KeyDown{ID: e.ID, Mask: e.Mask, Button: e.Button}
	}
}

// dispatchMove feeds a relative motion sample through the Layout, coalesces
// bursts addressed to the same remote screen, and emits CursorEnter/Leave
// on an edge crossing.
func (r *Router) dispatchMove(dx, dy int) error {
	before := r.layout.ActiveScreen()
	t := r.layout.Move(dx, dy)

	if !t.Entered {
		if before == "" {
			r.events <- session.ServerEvent{Event: session.LocalEvent{Event: session.MoveDelta{DX: dx, DY: dy}}}
			return nil
		}
		if r.coal.Add(dx, dy) {
			return r.flushCoalesced(before)
		}
		return nil
	}

	// A screen change flushes any coalesced motion to the screen being
	// left before the CursorEnter/CursorLeave pair, preserving ordering.
	if err := r.flushCoalesced(before); err != nil {
		return err
	}
	if t.Left != "" {
		if err := r.sendTo(t.Left, &protocol.CursorLeave{}); err != nil {
			return err
		}
	}
	if t.NewActive == "" {
		return nil
	}
	return r.sendTo(t.NewActive, t.CursorEnter)
}

func (r *Router) flushCoalesced(target string) error {
	dx, dy, ok := r.coal.Flush()
	if !ok || target == "" {
		return nil
	}
	return r.sendTo(target, &protocol.MouseRelMove{DX: int16(dx), DY: int16(dy)})
}

func (r *Router) sendToActive(msg any) error {
	active := r.layout.ActiveScreen()
	if active == "" {
		r.events <- session.ServerEvent{Event: session.LocalEvent{Event: msg}}
		return nil
	}
	return r.sendTo(active, msg)
}

func (r *Router) sendTo(name string, msg any) error {
	r.mu.Lock()
	h, ok := r.conns[name]
	r.mu.Unlock()
	if !ok || h == nil {
		return nil // screen has no live connection (e.g. already disconnected)
	}
	if err := h.conn.Send(msg); err != nil {
		h.cancel()
		return fmt.Errorf("router: %s: %w", name, err)
	}
	return nil
}

// broadcastClipboard sends GrabClipboard followed by the chunked
// SetClipboard sequence to every live connection.
func (r *Router) broadcastClipboard(e session.ClipboardChange) error {
	id := uint8(e.Format)

	r.mu.Lock()
	r.clipSeq++
	seq := r.clipSeq
	targets := make([]*connHandle, 0, len(r.conns))
	for _, h := range r.conns {
		if h != nil {
			targets = append(targets, h)
		}
	}
	r.mu.Unlock()

	for _, h := range targets {
		if err := h.conn.Send(&protocol.GrabClipboard{ID: id, Seq: seq}); err != nil {
			h.cancel()
			continue
		}
		for _, m := range clipboard.Chunk(id, seq, e.Data) {
			if err := h.conn.Send(m); err != nil {
				h.cancel()
				break
			}
		}
	}
	return nil
}
