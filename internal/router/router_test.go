package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/kborders/synergo/internal/layout"
	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/serverconn"
	"github.com/kborders/synergo/internal/session"
)

func buildLayout(t *testing.T) *layout.Layout {
	t.Helper()
	b := layout.NewLayoutBuilder(1920, 1080)
	if _, err := b.AddClient(layout.NewClientBuilder("laptop").Dimensions(1280, 800).Position(layout.PosLeft())); err != nil {
		t.Fatalf("add client: %v", err)
	}
	lo, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	lo.SetCursor(0, 540)
	return lo
}

// attachClient dials a fake client over a net.Pipe, runs its handshake by
// hand (playing the client's wire role directly, not via clientconn), and
// returns the client-side net.Conn plus a channel that receives Attach's
// return value.
func attachClient(t *testing.T, r *Router, ctx context.Context, name string) (net.Conn, <-chan error) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	conn := serverconn.New(serverSide, serverconn.Config{
		Registry:  r,
		Keepalive: 50 * time.Millisecond,
		Timeout:   500 * time.Millisecond,
	})

	attachDone := make(chan error, 1)
	go func() { attachDone <- r.Attach(ctx, conn) }()

	if _, err := protocol.ReadMessage(clientSide); err != nil {
		t.Fatalf("%s: read hello: %v", name, err)
	}
	protocol.WriteMessage(clientSide, &protocol.HelloBack{Major: 1, Minor: 6, Name: name})
	if _, err := protocol.ReadMessage(clientSide); err != nil {
		t.Fatalf("%s: read query info: %v", name, err)
	}
	protocol.WriteMessage(clientSide, &protocol.Info{W: 1280, H: 800})
	for i := 0; i < 3; i++ {
		if _, err := protocol.ReadMessage(clientSide); err != nil {
			t.Fatalf("%s: read handshake tail %d: %v", name, i, err)
		}
	}

	// Attach registers the connection for routing only after Ready closes,
	// which is after the handshake tail above has been written; wait for it.
	deadline := time.Now().Add(time.Second)
	for {
		r.mu.Lock()
		h := r.conns[name]
		r.mu.Unlock()
		if h != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s: connection not registered with the router", name)
		}
		time.Sleep(time.Millisecond)
	}

	return clientSide, attachDone
}

func TestServerActiveMoveSurfacesLocalEvent(t *testing.T) {
	lo := buildLayout(t)
	r := New(lo)

	if err := r.Dispatch(session.MoveDelta{DX: 5, DY: 0}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	select {
	case ev := <-r.Events():
		local, ok := ev.Event.(session.LocalEvent)
		if !ok {
			t.Fatalf("expected LocalEvent, got %T", ev.Event)
		}
		if _, ok := local.Event.(session.MoveDelta); !ok {
			t.Fatalf("expected wrapped MoveDelta, got %T", local.Event)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive LocalEvent")
	}
}

func TestEdgeCrossingSendsCursorEnter(t *testing.T) {
	lo := buildLayout(t)
	r := New(lo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientSide, attachDone := attachClient(t, r, ctx, "laptop")
	defer clientSide.Close()

	if err := r.Dispatch(session.MoveDelta{DX: -1, DY: 0}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	msg, err := protocol.ReadMessage(clientSide)
	if err != nil {
		t.Fatalf("read cursor enter: %v", err)
	}
	ce, ok := msg.(*protocol.CursorEnter)
	if !ok {
		t.Fatalf("expected CursorEnter, got %T", msg)
	}
	if ce.X != 1279 || ce.Y != 400 {
		t.Fatalf("unexpected CursorEnter: %+v", ce)
	}

	if lo.ActiveScreen() != "laptop" {
		t.Fatalf("expected active screen laptop, got %q", lo.ActiveScreen())
	}

	cancel()
	select {
	case <-attachDone:
	case <-time.After(time.Second):
		t.Fatal("Attach did not return after cancel")
	}
}

func TestInfoUpdateSurfacedAsTaggedServerEvent(t *testing.T) {
	lo := buildLayout(t)
	r := New(lo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientSide, _ := attachClient(t, r, ctx, "laptop")
	defer clientSide.Close()

	protocol.WriteMessage(clientSide, &protocol.Info{W: 1280, H: 800, CursorX: 10, CursorY: 20})

	select {
	case ev := <-r.Events():
		if ev.ClientName != "laptop" {
			t.Fatalf("expected ClientName laptop, got %q", ev.ClientName)
		}
		iu, ok := ev.Event.(session.InfoUpdated)
		if !ok {
			t.Fatalf("expected InfoUpdated, got %T", ev.Event)
		}
		if iu.Geometry.CursorX != 10 || iu.Geometry.CursorY != 20 {
			t.Fatalf("unexpected geometry: %+v", iu.Geometry)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive InfoUpdated event")
	}
}

func TestDispatchToUnknownScreenIsNoop(t *testing.T) {
	lo := buildLayout(t)
	r := New(lo)

	// No connection attached for "laptop": crossing into it must not panic
	// or block, just silently drop the CursorEnter send.
	if err := r.Dispatch(session.MoveDelta{DX: -1, DY: 0}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if lo.ActiveScreen() != "laptop" {
		t.Fatalf("expected active screen laptop, got %q", lo.ActiveScreen())
	}
}
