package session

import (
	"errors"
	"fmt"
)

// SessionError sentinels. RemoteError additionally carries the peer's
// 4-byte error code (EUNK/EBSY/EBAD).
var (
	ErrTimeout       = errors.New("session: heartbeat timeout")
	ErrBackpressure  = errors.New("session: outbound queue backpressure")
	ErrClosed        = errors.New("session: closed")
	ErrRemoteRefused = errors.New("session: remote refused connection")
)

// RemoteError wraps ErrRemoteRefused with the specific code the peer sent
// (EUNK: unknown client name, EBSY: name already connected, EBAD: malformed
// handshake).
type RemoteError struct {
	Code string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("session: remote refused connection: %s", e.Code)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemoteRefused
}
