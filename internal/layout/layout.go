// Package layout builds and drives the server-side screen graph: the
// LayoutBuilder/ClientBuilder pair that validates a static arrangement of
// screens, and the edge-crossing math that maps cursor motion across
// heterogeneous resolutions.
package layout

import (
	"sync"

	"github.com/kborders/synergo/internal/protocol"
)

// LayoutBuilder accumulates clients before producing an immutable Layout.
// The server screen is always the implicit root.
type LayoutBuilder struct {
	serverWidth  int
	serverHeight int
	order        []string
	clients      map[string]*Client
}

func NewLayoutBuilder(serverWidth, serverHeight int) *LayoutBuilder {
	return &LayoutBuilder{
		serverWidth:  serverWidth,
		serverHeight: serverHeight,
		clients:      make(map[string]*Client),
	}
}

// AddClient registers one client. Duplicate names are rejected immediately;
// edge-overlap and relative_to resolution are validated at Build, once the
// full client set is known.
func (b *LayoutBuilder) AddClient(cb *ClientBuilder) (*LayoutBuilder, error) {
	c := cb.build()
	if _, exists := b.clients[c.Name]; exists {
		return b, ErrDuplicateName
	}
	b.clients[c.Name] = c
	b.order = append(b.order, c.Name)
	return b, nil
}

// Build validates the accumulated clients and produces an immutable Layout.
func (b *LayoutBuilder) Build() (*Layout, error) {
	adjacency := map[string]map[PositionKind]*Client{"": {}}
	occupied := map[string]map[PositionKind]bool{"": {}}

	for _, name := range b.order {
		c := b.clients[name]
		if c.Position.Kind == Absolute {
			continue
		}
		if occupied[c.Parent] == nil {
			occupied[c.Parent] = map[PositionKind]bool{}
		}
		if occupied[c.Parent][c.Position.Kind] {
			return nil, ErrEdgeOverlap
		}
		occupied[c.Parent][c.Position.Kind] = true
	}

	// Resolve relative_to references and reject cycles.
	for _, name := range b.order {
		if err := b.checkReachable(name); err != nil {
			return nil, err
		}
	}

	for _, name := range b.order {
		c := b.clients[name]
		if c.Position.Kind == Absolute {
			continue
		}
		if adjacency[c.Parent] == nil {
			adjacency[c.Parent] = map[PositionKind]*Client{}
		}
		adjacency[c.Parent][c.Position.Kind] = c
		if adjacency[name] == nil {
			adjacency[name] = map[PositionKind]*Client{}
		}
		// The parent is reachable back across the opposite edge. The
		// server is encoded explicitly as a sentinel so Move can tell
		// apart "no neighbour" (nil entry) from "the server".
		adjacency[name][c.Position.Kind.opposite()] = serverSentinelOrClient(b.clients, c.Parent)
	}

	clientsCopy := make(map[string]*Client, len(b.clients))
	for k, v := range b.clients {
		clientsCopy[k] = v
	}

	return &Layout{
		serverWidth:  b.serverWidth,
		serverHeight: b.serverHeight,
		clients:      clientsCopy,
		adjacency:    adjacency,
		active:       "",
	}, nil
}

// serverSentinelOrClient returns the *Client for a non-empty parent name,
// or the shared serverClient sentinel when parent == "".
func serverSentinelOrClient(clients map[string]*Client, parent string) *Client {
	if parent == "" {
		return &serverClient
	}
	return clients[parent]
}

// serverClient is a sentinel Client representing the server screen in
// adjacency tables; its Name is always "".
var serverClient = Client{Name: ""}

// checkReachable walks name's relative_to chain up to the server, failing
// on an unresolved reference or a cycle.
func (b *LayoutBuilder) checkReachable(name string) error {
	visited := map[string]bool{}
	cur := name
	for {
		if cur == "" {
			return nil
		}
		if visited[cur] {
			return ErrCycle
		}
		visited[cur] = true
		c, ok := b.clients[cur]
		if !ok {
			return ErrUnknownClient
		}
		cur = c.Parent
	}
}

// Layout is an immutable, built screen graph with one mutable piece of
// state: which screen is currently active. Safe for concurrent use; the
// router task is expected to be its only mutator, but the mutex guards
// against accidental concurrent access from test code or diagnostics.
type Layout struct {
	serverWidth, serverHeight int
	clients                   map[string]*Client
	adjacency                 map[string]map[PositionKind]*Client

	mu       sync.Mutex
	active   string
	cursorX  int
	cursorY  int
	seq      uint32
}

// ActiveScreen returns "" for the server, or a client name.
func (l *Layout) ActiveScreen() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Layout) Client(name string) (*Client, bool) {
	c, ok := l.clients[name]
	return c, ok
}

// SetCursor places the cursor at (x, y) within the active screen's
// coordinate space, without producing a transition. Used to seed state
// before feeding Move deltas.
func (l *Layout) SetCursor(x, y int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cursorX, l.cursorY = x, y
}

func (l *Layout) dimensions(name string) (w, h int) {
	if name == "" {
		return l.serverWidth, l.serverHeight
	}
	c := l.clients[name]
	return c.Width, c.Height
}

// Transition describes the result of a Move call that crossed a screen
// edge into a neighbour.
type Transition struct {
	Entered     bool
	Left        string // the screen that lost activation; "" for the server
	NewActive   string
	CursorEnter *protocol.CursorEnter
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundDiv computes round(numerator/denominator) using integer arithmetic,
// for non-negative operands.
func roundDiv(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return (numerator + denominator/2) / denominator
}

// Move advances the cursor by (dx, dy) within the active screen. If the
// move exits an edge with a neighbour bound to it, the active screen
// switches and a CursorEnter is returned; otherwise the cursor clamps to
// the edge and the active screen is unchanged.
func (l *Layout) Move(dx, dy int) Transition {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, h := l.dimensions(l.active)
	nx := l.cursorX + dx
	ny := l.cursorY + dy

	var side PositionKind
	crossed := false
	switch {
	case nx < 0:
		side, crossed = Left, true
	case nx >= w:
		side, crossed = Right, true
	case ny < 0:
		side, crossed = Top, true
	case ny >= h:
		side, crossed = Bottom, true
	}

	if !crossed {
		l.cursorX, l.cursorY = nx, ny
		return Transition{}
	}

	neighbour := l.adjacency[l.active][side]
	if neighbour == nil {
		l.cursorX = clamp(nx, 0, w-1)
		l.cursorY = clamp(ny, 0, h-1)
		return Transition{}
	}

	nw, nh := l.dimensions(neighbour.Name)
	var entryX, entryY int
	switch side {
	case Left:
		entryX = nw - 1
		entryY = clamp(roundDiv(l.cursorY*nh, h), 0, nh-1)
	case Right:
		entryX = 0
		entryY = clamp(roundDiv(l.cursorY*nh, h), 0, nh-1)
	case Top:
		entryY = nh - 1
		entryX = clamp(roundDiv(l.cursorX*nw, w), 0, nw-1)
	case Bottom:
		entryY = 0
		entryX = clamp(roundDiv(l.cursorX*nw, w), 0, nw-1)
	}

	previous := l.active
	l.active = neighbour.Name
	l.cursorX, l.cursorY = entryX, entryY
	l.seq++

	return Transition{
		Entered:   true,
		Left:      previous,
		NewActive: neighbour.Name,
		CursorEnter: &protocol.CursorEnter{
			X:    int16(entryX),
			Y:    int16(entryY),
			Seq:  l.seq,
			Mask: 0,
		},
	}
}
