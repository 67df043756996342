// Command synergod is an example server: it builds a Layout from flags,
// listens for client connections, and logs every ServerEvent to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kborders/synergo"
	"github.com/kborders/synergo/internal/version"
	"github.com/kborders/synergo/transport"
	"github.com/kborders/synergo/transport/nettcp"
	"github.com/kborders/synergo/transport/quicstream"
)

// globalFlags holds double-dash flags parsed from os.Args before dispatch,
// matching the teacher's parseGlobalFlags split between global switches and
// the flag.FlagSet governing everything else.
type globalFlags struct {
	version bool
	quic    bool
	rest    []string
}

func parseGlobalFlags() globalFlags {
	var g globalFlags
	for i := 1; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "--version":
			g.version = true
		case "--quic":
			g.quic = true
		default:
			g.rest = append(g.rest, os.Args[i])
		}
	}
	return g
}

func main() {
	gf := parseGlobalFlags()
	if gf.version {
		fmt.Printf("synergod %s (%s)\n", version.VERSION, version.Commit)
		os.Exit(0)
	}

	fs := flag.NewFlagSet("synergod", flag.ExitOnError)
	addr := fs.String("addr", ":24800", "address to listen on")
	width := fs.Int("width", 1920, "server screen width")
	height := fs.Int("height", 1080, "server screen height")
	var clients clientFlags
	fs.Var(&clients, "client", "name:WxH:side, repeatable (side one of left,right,top,bottom)")
	fs.Parse(gf.rest)

	lb := synergo.NewLayoutBuilder(*width, *height)
	for _, c := range clients {
		if _, err := lb.AddClient(c.builder()); err != nil {
			fmt.Fprintf(os.Stderr, "synergod: add client %s: %v\n", c.name, err)
			os.Exit(1)
		}
	}
	lo, err := lb.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "synergod: build layout: %v\n", err)
		os.Exit(1)
	}

	var ln transport.Listener
	var listenErr error
	var srv *synergo.Server

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "synergod")

	if gf.quic {
		qln, err := quicstream.Listen(*addr)
		if err != nil {
			listenErr = err
		} else {
			ln = qln
			srv = synergo.Listen(ctx, qln, lo, synergo.ServerOptions{Logger: log})
		}
	} else {
		tln, err := nettcp.Listen(*addr)
		if err != nil {
			listenErr = err
		} else {
			ln = tln
			srv = synergo.Listen(ctx, tln, lo, synergo.ServerOptions{Logger: log})
		}
	}
	if listenErr != nil {
		fmt.Fprintf(os.Stderr, "synergod: listen: %v\n", listenErr)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("listening", "addr", ln.Addr(), "quic", gf.quic)

	for {
		select {
		case ev, ok := <-srv.Events():
			if !ok {
				return
			}
			log.Info("event", "client", ev.ClientName, "type", fmt.Sprintf("%T", ev.Event))
		case <-ctx.Done():
			return
		}
	}
}

// clientSpec is one -client flag value: name:WxH:side.
type clientSpec struct {
	name string
	w, h int
	side string
}

func (c clientSpec) builder() *synergo.ClientBuilder {
	b := synergo.NewClientBuilder(c.name).Dimensions(c.w, c.h)
	switch c.side {
	case "right":
		b.Position(synergo.PosRight())
	case "top":
		b.Position(synergo.PosTop())
	case "bottom":
		b.Position(synergo.PosBottom())
	default:
		b.Position(synergo.PosLeft())
	}
	return b
}

// clientFlags implements flag.Value, accumulating repeated -client flags.
type clientFlags []clientSpec

func (c *clientFlags) String() string { return "" }

func (c *clientFlags) Set(v string) error {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return fmt.Errorf("expected name:WxH:side, got %q", v)
	}
	dims := strings.SplitN(parts[1], "x", 2)
	if len(dims) != 2 {
		return fmt.Errorf("expected WxH, got %q", parts[1])
	}
	w, err := strconv.Atoi(dims[0])
	if err != nil {
		return err
	}
	h, err := strconv.Atoi(dims[1])
	if err != nil {
		return err
	}
	*c = append(*c, clientSpec{name: parts[0], w: w, h: h, side: parts[2]})
	return nil
}
