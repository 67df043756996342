package protocol

import "errors"

// Sentinel errors for the ProtocolError taxonomy. Session- and
// clipboard-level code wraps these with fmt.Errorf("...: %w", ...) to attach
// context; callers use errors.Is against the sentinel.
var (
	ErrFrameSize         = errors.New("protocol: invalid frame size")
	ErrEncoding          = errors.New("protocol: invalid encoding")
	ErrVersion           = errors.New("protocol: unsupported hello version")
	ErrUnexpectedMessage = errors.New("protocol: unexpected message for session state")
	ErrClipboardOverlap  = errors.New("protocol: clipboard transfer overlap")
	ErrClipboardOrphan   = errors.New("protocol: clipboard transfer orphan")
	ErrClipboardTooLarge = errors.New("protocol: clipboard transfer too large")
	ErrUnknownMessage    = errors.New("protocol: unrecognized message type")
	ErrShortPayload      = errors.New("protocol: payload too short for message type")
)
