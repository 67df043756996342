// Package nettcp is the default transport.Stream/Listener implementation:
// a plaintext TCP connection, matching the core's stated assumption that a
// plaintext TCP stream is supplied unless an application wraps it itself.
package nettcp

import (
	"context"
	"net"

	"github.com/kborders/synergo/transport"
)

type conn struct {
	net.Conn
}

// Dialer adapts Dial to transport.Dialer.
type Dialer struct{}

func (Dialer) Dial(ctx context.Context, addr string) (transport.Stream, error) {
	return Dial(ctx, addr)
}

// Dial connects to addr ("host:port") and returns it as a transport.Stream.
func Dial(ctx context.Context, addr string) (transport.Stream, error) {
	d := net.Dialer{}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return conn{c}, nil
}

type listener struct {
	ln net.Listener
}

// Listen binds addr ("host:port", port 0 for an ephemeral port).
func Listen(addr string) (transport.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln}, nil
}

func (l *listener) Accept(ctx context.Context) (transport.Stream, error) {
	type result struct {
		c   net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return conn{r.c}, nil
	case <-ctx.Done():
		l.ln.Close()
		return nil, ctx.Err()
	}
}

func (l *listener) Addr() string { return l.ln.Addr().String() }
func (l *listener) Close() error { return l.ln.Close() }
