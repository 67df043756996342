package session

// ClipboardFormat identifies the payload encoding of a clipboard transfer.
// Per the open question on format identifiers, only the integer IDs used by
// protocol >=1.6 are accepted; a string format identifier is a decode error.
type ClipboardFormat uint32

const (
	ClipboardText   ClipboardFormat = 0
	ClipboardBitmap ClipboardFormat = 1
	ClipboardHTML   ClipboardFormat = 2
)

// Geometry is a screen's reported size and warp-zone width, carried by Info.
type Geometry struct {
	Width, Height int
	WarpZone      int
	CursorX       int
	CursorY       int
}

// --- Client-facing events (internal/clientconn.Conn.Events) ---

// CursorEnter reports the local screen becoming active.
type CursorEnter struct {
	X, Y int
	Seq  uint32
	Mask uint16
}

// CursorLeave reports the local screen losing activation.
type CursorLeave struct{}

// MouseMove is an absolute warp within the local screen.
type MouseMove struct{ X, Y int }

// MouseRelMove is a relative pointer delta.
type MouseRelMove struct{ DX, DY int }

// MouseButton reports a press or release.
type MouseButton struct {
	Press  bool
	Button uint8
}

// MouseWheel reports a scroll delta on both axes.
type MouseWheel struct{ XDelta, YDelta int }

// KeyEvent reports a key transition. Kind is KeyRepeat for auto-repeat, with
// RepeatCount carrying the repeat count.
type KeyEvent struct {
	ID, Mask, Button uint16
	Kind             KeyKind
	RepeatCount      uint16
}

type KeyKind int

const (
	KeyDown KeyKind = iota
	KeyUp
	KeyRepeat
)

// ScreenSaverChanged reports the peer's screen saver activation state.
type ScreenSaverChanged struct{ Active bool }

// ClipboardChanged is emitted once a chunked clipboard transfer completes.
type ClipboardChanged struct {
	ID     uint8
	Seq    uint32
	Format ClipboardFormat
	Data   []byte
}

// GrabClipboardReceived reports a peer claiming clipboard ownership.
type GrabClipboardReceived struct {
	ID  uint8
	Seq uint32
}

// Disconnected is the terminal event on any session. Reason is nil when a
// client session ends on the server's ServerClose; when the session's
// context is cancelled it is the context's error.
type Disconnected struct{ Reason error }

// --- Server-facing events (internal/router aggregates these per client) ---

// ServerEvent is one event from a named client, in arrival order across all
// connections (no cross-client ordering guarantee).
type ServerEvent struct {
	ClientName string
	Event      any
}

// InfoUpdated is emitted when a client reports or updates its geometry.
type InfoUpdated struct{ Geometry Geometry }

// LocalEvent is a host input sample that the router did not forward because
// the active screen was already the server; delivered so the application
// can observe input activity, though the OS has already handled it.
type LocalEvent struct{ Event any }

// --- Application-supplied input (Server.SendInput) ---

// InputEvent is a host-produced input sample the router dispatches
// according to the active screen.
type InputEvent interface{ isInputEvent() }

type MoveDelta struct{ DX, DY int }
type ButtonEvent struct {
	Press  bool
	Button uint8
}
type WheelEvent struct{ XDelta, YDelta int }
type KeyInputEvent struct {
	ID, Mask, Button uint16
	Kind             KeyKind
	RepeatCount      uint16
}
type ClipboardChange struct {
	Format ClipboardFormat
	Data   []byte
}

func (MoveDelta) isInputEvent()       {}
func (ButtonEvent) isInputEvent()     {}
func (WheelEvent) isInputEvent()      {}
func (KeyInputEvent) isInputEvent()   {}
func (ClipboardChange) isInputEvent() {}
