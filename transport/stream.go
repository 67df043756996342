// Package transport defines the minimal full-duplex byte-stream capability
// the core consumes. Per the design note against binding to a specific
// runtime, the session packages never import a concrete transport; they
// take a Stream and drive protocol.WriteMessage/ReadMessage over it.
// Concrete implementations live in the nettcp and quicstream subpackages.
package transport

import (
	"context"
	"io"
	"time"
)

// Stream is an already-established, full-duplex, byte-oriented connection.
// If encryption wraps the stream it is transparent to callers.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dialer establishes one Stream to a remote listener.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Stream, error)
}

// Listener accepts incoming Streams.
type Listener interface {
	Accept(ctx context.Context) (Stream, error)
	Addr() string
	Close() error
}
