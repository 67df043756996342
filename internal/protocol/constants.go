package protocol

// Wire format version. The client rejects a Hello whose major differs or
// whose minor is older than MinMinor.
const (
	Major    = 1
	Minor    = 6
	MinMinor = 3
)

// FrameHeaderSize is the length of the u32_be length prefix. length counts
// the payload only, starting at the command code (or, for Hello/HelloBack,
// the "Synergy" literal).
const FrameHeaderSize = 4

// MaxFrameSize bounds the declared payload length. A frame claiming more is
// rejected before any payload buffer is allocated.
const MaxFrameSize = 4 * 1024 * 1024

// helloLiteral is the fixed 7-byte prefix carried by Hello and HelloBack in
// place of a 4-byte command code.
const helloLiteral = "Synergy"

// 4-byte ASCII command codes, per the canonical command-code table.
var (
	codeCALV = [4]byte{'C', 'A', 'L', 'V'} // KeepAlive
	codeCNOP = [4]byte{'C', 'N', 'O', 'P'} // NoOp
	codeCBYE = [4]byte{'C', 'B', 'Y', 'E'} // ServerClose
	codeCIAK = [4]byte{'C', 'I', 'A', 'K'} // InfoAck
	codeCROP = [4]byte{'C', 'R', 'O', 'P'} // ResetOptions
	codeCINN = [4]byte{'C', 'I', 'N', 'N'} // CursorEnter
	codeCOUT = [4]byte{'C', 'O', 'U', 'T'} // CursorLeave
	codeCCLP = [4]byte{'C', 'C', 'L', 'P'} // GrabClipboard
	codeCSEC = [4]byte{'C', 'S', 'E', 'C'} // ScreenSaver
	codeDMMV = [4]byte{'D', 'M', 'M', 'V'} // MouseMove (absolute)
	codeDMRM = [4]byte{'D', 'M', 'R', 'M'} // MouseRelMove
	codeDMDN = [4]byte{'D', 'M', 'D', 'N'} // MouseButton (press)
	codeDMUP = [4]byte{'D', 'M', 'U', 'P'} // MouseButton (release)
	codeDMWM = [4]byte{'D', 'M', 'W', 'M'} // MouseWheel
	codeDKDN = [4]byte{'D', 'K', 'D', 'N'} // KeyDown
	codeDKUP = [4]byte{'D', 'K', 'U', 'P'} // KeyUp
	codeDKRP = [4]byte{'D', 'K', 'R', 'P'} // KeyRepeat
	codeDCLP = [4]byte{'D', 'C', 'L', 'P'} // SetClipboard
	codeDSOP = [4]byte{'D', 'S', 'O', 'P'} // SetDeviceOptions
	codeQINF = [4]byte{'Q', 'I', 'N', 'F'} // QueryInfo
	codeDINF = [4]byte{'D', 'I', 'N', 'F'} // Info
	codeEUNK = [4]byte{'E', 'U', 'N', 'K'} // ErrorUnknownClient
	codeEBSY = [4]byte{'E', 'B', 'S', 'Y'} // ErrorBusy
	codeEBAD = [4]byte{'E', 'B', 'A', 'D'} // ErrorBadClient
)

// Clipboard chunk marks (§ Mark in the glossary).
const (
	ClipboardStart      = 0
	ClipboardContinue   = 1
	ClipboardEnd        = 2
	ClipboardChunkSize  = 32 * 1024
	ClipboardDefaultCap = 32 * 1024 * 1024
)
