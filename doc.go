// Package synergo implements the core of a Synergy/Deskflow-style
// mouse-and-keyboard-sharing protocol: a shared-clipboard, multi-screen
// input-redirection session running over any full-duplex byte stream the
// caller supplies.
//
// A server builds a Layout describing how client screens sit around the
// host, listens for connections, and feeds host input samples to Server;
// motion that crosses a screen edge is forwarded to the client now holding
// focus. A client connects to a server, reports its geometry, and receives
// cursor, keyboard, and clipboard events to apply locally.
//
// This package wires the protocol, handshake, and routing logic in
// internal/ to a concrete transport. transport/nettcp and
// transport/quicstream both satisfy transport.Dialer/transport.Listener;
// callers may supply their own instead.
package synergo
