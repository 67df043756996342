package synergo

import (
	"context"
	"log/slog"
	"time"

	"github.com/kborders/synergo/internal/layout"
	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/router"
	"github.com/kborders/synergo/internal/serverconn"
	"github.com/kborders/synergo/internal/session"
	"github.com/kborders/synergo/transport"
)

// Re-exported layout builder types, so callers never need to import
// internal/layout directly to describe a screen arrangement.
type (
	LayoutBuilder = layout.LayoutBuilder
	ClientBuilder = layout.ClientBuilder
	Position      = layout.Position
)

func NewLayoutBuilder(serverWidth, serverHeight int) *LayoutBuilder {
	return layout.NewLayoutBuilder(serverWidth, serverHeight)
}

func NewClientBuilder(name string) *ClientBuilder { return layout.NewClientBuilder(name) }

func PosLeft() Position             { return layout.PosLeft() }
func PosRight() Position            { return layout.PosRight() }
func PosTop() Position              { return layout.PosTop() }
func PosBottom() Position           { return layout.PosBottom() }
func PosAbsolute(x, y int) Position { return layout.PosAbsolute(x, y) }

// ServerOptions configures Listen.
type ServerOptions struct {
	Keepalive     time.Duration
	Timeout       time.Duration
	DeviceOptions []protocol.OptionPair

	// Logger receives connection lifecycle and warning messages. A
	// discard-backed logger is used if nil.
	Logger *slog.Logger
}

// Server accepts connections against a fixed Layout, dispatching accepted
// connections through an Event Router.
type Server struct {
	ln     transport.Listener
	r      *router.Router
	opt    ServerOptions
	log    *slog.Logger
	cancel context.CancelFunc
}

// Listen binds ln (already listening) and starts accepting connections in
// the background, routed according to lo. Call Close to stop.
func Listen(ctx context.Context, ln transport.Listener, lo *layout.Layout, opt ServerOptions) *Server {
	log := opt.Logger
	if log == nil {
		log = slog.New(&discardHandler{})
	}

	acceptCtx, cancel := context.WithCancel(ctx)
	s := &Server{ln: ln, r: router.New(lo), opt: opt, log: log, cancel: cancel}

	go s.acceptLoop(acceptCtx)
	return s
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		stream, err := s.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("accept", "err", err)
			continue
		}

		conn := serverconn.New(stream, serverconn.Config{
			Registry:      s.r,
			Keepalive:     s.opt.Keepalive,
			Timeout:       s.opt.Timeout,
			DeviceOptions: s.opt.DeviceOptions,
		})
		go func() {
			if err := s.r.Attach(ctx, conn); err != nil {
				s.log.Info("connection closed", "err", err)
			}
		}()
	}
}

// Events is the aggregated, per-client-tagged event stream surfaced by
// connected clients (geometry updates, clipboard changes, disconnects).
func (s *Server) Events() <-chan session.ServerEvent { return s.r.Events() }

// SendInput dispatches one host input sample according to the active
// screen: forwarded to whichever client currently has focus, or surfaced
// back on Events as a session.LocalEvent if the server screen is active.
func (s *Server) SendInput(ev session.InputEvent) error { return s.r.Dispatch(ev) }

// Close stops accepting new connections and tears down every live one.
func (s *Server) Close() error {
	s.cancel()
	s.r.Shutdown()
	return s.ln.Close()
}

// discardHandler is a no-op slog handler used when the caller supplies no
// Logger.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d *discardHandler) WithAttrs([]slog.Attr) slog.Handler     { return d }
func (d *discardHandler) WithGroup(string) slog.Handler          { return d }
