package layout

// PositionKind is the side of a parent screen a client occupies. Absolute
// is accepted for completeness (ScreenInfo's position variant in the data
// model includes it) but is not reachable by edge crossing — the 1.6
// reference model, and its relative_to extension, only route cursor
// movement across cardinal edges.
type PositionKind int

const (
	Left PositionKind = iota
	Right
	Top
	Bottom
	Absolute
)

func (k PositionKind) opposite() PositionKind {
	switch k {
	case Left:
		return Right
	case Right:
		return Left
	case Top:
		return Bottom
	case Bottom:
		return Top
	default:
		return k
	}
}

// Position is where a client sits relative to its parent screen (the
// server, or another client when built via ClientBuilder.RelativeTo).
type Position struct {
	Kind PositionKind
	X, Y int // meaningful only when Kind == Absolute
}

func PosLeft() Position   { return Position{Kind: Left} }
func PosRight() Position  { return Position{Kind: Right} }
func PosTop() Position    { return Position{Kind: Top} }
func PosBottom() Position { return Position{Kind: Bottom} }
func PosAbsolute(x, y int) Position {
	return Position{Kind: Absolute, X: x, Y: y}
}

// ClientBuilder accumulates one client's configuration before it is added
// to a LayoutBuilder. Mirrors the chainable ClientBuilder in the original
// implementation this spec was distilled from.
type ClientBuilder struct {
	name        string
	width       int
	height      int
	position    Position
	relativeTo  string
	hasPosition bool
}

// NewClientBuilder starts a client named name with default dimensions
// 1920x1080; call Dimensions to override.
func NewClientBuilder(name string) *ClientBuilder {
	return &ClientBuilder{name: name, width: 1920, height: 1080, position: PosLeft()}
}

func (c *ClientBuilder) Dimensions(w, h int) *ClientBuilder {
	c.width, c.height = w, h
	return c
}

func (c *ClientBuilder) Position(p Position) *ClientBuilder {
	c.position = p
	c.hasPosition = true
	return c
}

// RelativeTo binds this client's position to another client's screen
// instead of the server's. The referenced client must also be added to the
// same LayoutBuilder; unresolved or cyclic references fail at Build.
func (c *ClientBuilder) RelativeTo(clientName string) *ClientBuilder {
	c.relativeTo = clientName
	return c
}

// Client is one screen in a built Layout.
type Client struct {
	Name     string
	Width    int
	Height   int
	Position Position
	Parent   string // "" means the server
}

func (c *ClientBuilder) build() *Client {
	return &Client{
		Name:     c.name,
		Width:    c.width,
		Height:   c.height,
		Position: c.position,
		Parent:   c.relativeTo,
	}
}
