// Command synergoc is an example client: it connects to a server, reports a
// fixed screen geometry, and logs every received event to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kborders/synergo"
	"github.com/kborders/synergo/internal/version"
	"github.com/kborders/synergo/transport/quicstream"
)

type globalFlags struct {
	version bool
	quic    bool
	profile bool
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
		case "--profile":
			g.profile = true
		default:
			g.rest = append(g.rest, os.Args[i])
		}
	}
	return g
}

func main() {
	gf := parseGlobalFlags()
	if gf.version {
		fmt.Printf("synergoc %s (%s)\n", version.VERSION, version.Commit)
		os.Exit(0)
	}

	fs := flag.NewFlagSet("synergoc", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:24800", "server address")
	name := fs.String("name", "", "screen name to report (required)")
	width := fs.Int("width", 1920, "screen width")
	height := fs.Int("height", 1080, "screen height")
	fs.Parse(gf.rest)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: -name is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "synergoc")

	opt := synergo.ClientOptions{Name: *name, Width: *width, Height: *height}
	if gf.quic {
		opt.Dialer = quicstream.Dialer{}
	}

	sess, err := synergo.Connect(ctx, *addr, opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "synergoc: connect: %v\n", err)
		os.Exit(1)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- sess.Run() }()

	if gf.profile && gf.quic {
		go profileLoop(ctx, log, sess)
	}

	for {
		ev, ok := sess.RecvEvent()
		if !ok {
			break
		}
		log.Info("event", "type", fmt.Sprintf("%T", ev))
	}

	if err := <-runDone; err != nil {
		fmt.Fprintf(os.Stderr, "synergoc: session ended: %v\n", err)
		os.Exit(1)
	}
}

// profileLoop periodically logs QUIC RTT/loss stats for the session.
func profileLoop(ctx context.Context, log *slog.Logger, sess *synergo.Session) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quicstream.LogStats(log, sess.Stream())
		}
	}
}
