package nettcp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/net/nettest"
)

func TestDialAndAccept(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		s, err := ln.Accept(ctx)
		if err != nil {
			serverDone <- err
			return
		}
		defer s.Close()
		buf := make([]byte, 5)
		if _, err := s.Read(buf); err != nil {
			serverDone <- err
			return
		}
		if string(buf) != "hello" {
			serverDone <- errors.New("unexpected payload")
			return
		}
		_, err = s.Write([]byte("world"))
		serverDone <- err
	}()

	c, err := Dial(ctx, ln.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if _, err := c.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := c.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "world" {
		t.Fatalf("expected world, got %q", buf)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestReadDeadline(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	acceptDone := make(chan error, 1)
	go func() {
		s, err := ln.Accept(ctx)
		if err != nil {
			acceptDone <- err
			return
		}
		defer s.Close()
		<-ctx.Done()
		acceptDone <- nil
	}()

	c, err := Dial(ctx, ln.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	c.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	buf := make([]byte, 1)
	if _, err := c.Read(buf); err == nil {
		t.Fatal("expected read deadline error")
	}
}

// TestConformance runs the nettest net.Conn conformance suite against a live
// nettcp.Dial/Listen pair, the same harness golang.org/x/net's own
// implementations use — the teacher never needed this since quic-go streams
// come with working deadlines already.
func TestConformance(t *testing.T) {
	nettest.TestConn(t, makeConnPair)
}

func makeConnPair() (c1, c2 net.Conn, stop func(), err error) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		return nil, nil, nil, err
	}

	ctx := context.Background()
	serverCh := make(chan net.Conn, 1)
	serverErrCh := make(chan error, 1)
	go func() {
		s, err := ln.Accept(ctx)
		if err != nil {
			serverErrCh <- err
			return
		}
		sc, ok := s.(net.Conn)
		if !ok {
			serverErrCh <- errors.New("nettcp stream does not implement net.Conn")
			return
		}
		serverCh <- sc
	}()

	client, err := Dial(ctx, ln.Addr())
	if err != nil {
		ln.Close()
		return nil, nil, nil, err
	}
	cc, ok := client.(net.Conn)
	if !ok {
		ln.Close()
		client.Close()
		return nil, nil, nil, errors.New("nettcp stream does not implement net.Conn")
	}

	var server net.Conn
	select {
	case server = <-serverCh:
	case err := <-serverErrCh:
		ln.Close()
		client.Close()
		return nil, nil, nil, err
	}

	stop = func() {
		client.Close()
		server.Close()
		ln.Close()
	}
	return cc, server, stop, nil
}
