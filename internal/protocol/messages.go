// Package protocol implements the Synergy/Deskflow wire codec: framing,
// the fixed command-code dispatch table, and encode/decode for every
// message variant in the canonical command-code table.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// --- Message types ---

// Hello is the server's greeting. Its first 7 payload bytes are the literal
// "Synergy", not a command code.
type Hello struct {
	Major uint16
	Minor uint16
}

// HelloBack mirrors Hello with an appended length-prefixed name.
type HelloBack struct {
	Major uint16
	Minor uint16
	Name  string
}

type QueryInfo struct{}

type Info struct {
	X, Y     int16
	W, H     uint16
	WarpZone uint16
	CursorX  int16
	CursorY  int16
}

// OptionPair is one (key, value) entry of a SetDeviceOptions map. A slice,
// not a Go map, so insertion order survives re-encoding.
type OptionPair struct {
	Key   uint32
	Value uint32
}

type SetDeviceOptions struct {
	Options []OptionPair
}

type KeepAlive struct{}
type NoOp struct{}

type CursorEnter struct {
	X, Y int16
	Seq  uint32
	Mask uint16
}

type CursorLeave struct{}

type MouseMove struct {
	X, Y int16
}

type MouseRelMove struct {
	DX, DY int16
}

type MouseButton struct {
	Press  bool
	Button uint8
}

type MouseWheel struct {
	XDelta, YDelta int16
}

type KeyDown struct {
	ID, Mask, Button uint16
}

type KeyUp struct {
	ID, Mask, Button uint16
}

type KeyRepeat struct {
	ID, Mask, Count, Button uint16
}

type GrabClipboard struct {
	ID  uint8
	Seq uint32
}

type SetClipboard struct {
	ID   uint8
	Seq  uint32
	Mark uint8
	Data []byte
}

type ScreenSaver struct {
	Active bool
}

type ResetOptions struct{}
type InfoAck struct{}

// ServerClose is CBYE. The protocol has no client-initiated wire close;
// a client leaves by closing the transport stream.
type ServerClose struct{}

type ErrorUnknownClient struct{}
type ErrorBusy struct{}
type ErrorBadClient struct{}

// Unknown preserves an unrecognized 4-byte code and its raw payload for
// forward compatibility. Re-encoding an Unknown reproduces the original
// frame bytes exactly.
type Unknown struct {
	Code    [4]byte
	Payload []byte
}

// --- Encoding ---

// WriteMessage frames and writes msg to w. Fixed-shape messages encode into
// a small stack buffer to avoid a heap allocation; SetClipboard writes its
// (potentially large) data slice directly rather than copying it into an
// intermediate buffer.
func WriteMessage(w io.Writer, msg any) error {
	switch m := msg.(type) {
	case *Hello:
		return writeHello(w, m)
	case *HelloBack:
		return writeHelloBack(w, m)
	case *SetClipboard:
		return writeSetClipboard(w, m)
	case *SetDeviceOptions:
		return writeSetDeviceOptions(w, m)
	case *Unknown:
		return writeUnknown(w, m)
	default:
		return writeFixed(w, msg)
	}
}

func writeFrame(w io.Writer, code [4]byte, body []byte) error {
	payloadLen := 4 + len(body)
	if payloadLen > MaxFrameSize {
		return ErrFrameSize
	}
	var header [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(payloadLen))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(code[:]); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func writeHello(w io.Writer, m *Hello) error {
	var payload [7 + 4]byte
	copy(payload[0:7], helloLiteral)
	binary.BigEndian.PutUint16(payload[7:9], m.Major)
	binary.BigEndian.PutUint16(payload[9:11], m.Minor)
	return writeRaw(w, payload[:])
}

func writeHelloBack(w io.Writer, m *HelloBack) error {
	name := []byte(m.Name)
	payload := make([]byte, 7+4+4+len(name))
	copy(payload[0:7], helloLiteral)
	binary.BigEndian.PutUint16(payload[7:9], m.Major)
	binary.BigEndian.PutUint16(payload[9:11], m.Minor)
	binary.BigEndian.PutUint32(payload[11:15], uint32(len(name)))
	copy(payload[15:], name)
	return writeRaw(w, payload)
}

// writeRaw writes a length-prefixed payload that already contains its own
// leading tag ("Synergy" for Hello/HelloBack); there is no separate 4-byte
// command code to prepend.
func writeRaw(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameSize
	}
	var header [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return nil
}

// writeSetClipboard writes the (id, seq, mark, data) tuple without copying
// m.Data into an intermediate buffer; clipboard chunks can be up to 32 KiB.
func writeSetClipboard(w io.Writer, m *SetClipboard) error {
	bodyLen := 1 + 4 + 1 + 4 + len(m.Data)
	if 4+bodyLen > MaxFrameSize {
		return ErrFrameSize
	}
	var header [FrameHeaderSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(4+bodyLen))

	var fixed [4 + 1 + 4 + 1 + 4]byte
	copy(fixed[0:4], codeDCLP[:])
	fixed[4] = m.ID
	binary.BigEndian.PutUint32(fixed[5:9], m.Seq)
	fixed[9] = m.Mark
	binary.BigEndian.PutUint32(fixed[10:14], uint32(len(m.Data)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}
	if len(m.Data) > 0 {
		if _, err := w.Write(m.Data); err != nil {
			return err
		}
	}
	return nil
}

func writeSetDeviceOptions(w io.Writer, m *SetDeviceOptions) error {
	body := make([]byte, 4+8*len(m.Options))
	binary.BigEndian.PutUint32(body[0:4], uint32(len(m.Options)))
	off := 4
	for _, opt := range m.Options {
		binary.BigEndian.PutUint32(body[off:off+4], opt.Key)
		binary.BigEndian.PutUint32(body[off+4:off+8], opt.Value)
		off += 8
	}
	return writeFrame(w, codeDSOP, body)
}

func writeUnknown(w io.Writer, m *Unknown) error {
	return writeFrame(w, m.Code, m.Payload)
}

// writeFixed handles every message whose payload is a small fixed shape:
// a 4-byte command code plus zero or more fixed-width fields.
func writeFixed(w io.Writer, msg any) error {
	var code [4]byte
	var scratch [16]byte
	n := 0

	switch m := msg.(type) {
	case *QueryInfo:
		code = codeQINF
	case *Info:
		code = codeDINF
		binary.BigEndian.PutUint16(scratch[0:2], uint16(m.X))
		binary.BigEndian.PutUint16(scratch[2:4], uint16(m.Y))
		binary.BigEndian.PutUint16(scratch[4:6], m.W)
		binary.BigEndian.PutUint16(scratch[6:8], m.H)
		binary.BigEndian.PutUint16(scratch[8:10], m.WarpZone)
		binary.BigEndian.PutUint16(scratch[10:12], uint16(m.CursorX))
		binary.BigEndian.PutUint16(scratch[12:14], uint16(m.CursorY))
		n = 14
	case *KeepAlive:
		code = codeCALV
	case *NoOp:
		code = codeCNOP
	case *CursorEnter:
		code = codeCINN
		binary.BigEndian.PutUint16(scratch[0:2], uint16(m.X))
		binary.BigEndian.PutUint16(scratch[2:4], uint16(m.Y))
		binary.BigEndian.PutUint32(scratch[4:8], m.Seq)
		binary.BigEndian.PutUint16(scratch[8:10], m.Mask)
		n = 10
	case *CursorLeave:
		code = codeCOUT
	case *MouseMove:
		code = codeDMMV
		binary.BigEndian.PutUint16(scratch[0:2], uint16(m.X))
		binary.BigEndian.PutUint16(scratch[2:4], uint16(m.Y))
		n = 4
	case *MouseRelMove:
		code = codeDMRM
		binary.BigEndian.PutUint16(scratch[0:2], uint16(m.DX))
		binary.BigEndian.PutUint16(scratch[2:4], uint16(m.DY))
		n = 4
	case *MouseButton:
		if m.Press {
			code = codeDMDN
		} else {
			code = codeDMUP
		}
		scratch[0] = m.Button
		n = 1
	case *MouseWheel:
		code = codeDMWM
		binary.BigEndian.PutUint16(scratch[0:2], uint16(m.XDelta))
		binary.BigEndian.PutUint16(scratch[2:4], uint16(m.YDelta))
		n = 4
	case *KeyDown:
		code = codeDKDN
		binary.BigEndian.PutUint16(scratch[0:2], m.ID)
		binary.BigEndian.PutUint16(scratch[2:4], m.Mask)
		binary.BigEndian.PutUint16(scratch[4:6], m.Button)
		n = 6
	case *KeyUp:
		code = codeDKUP
		binary.BigEndian.PutUint16(scratch[0:2], m.ID)
		binary.BigEndian.PutUint16(scratch[2:4], m.Mask)
		binary.BigEndian.PutUint16(scratch[4:6], m.Button)
		n = 6
	case *KeyRepeat:
		code = codeDKRP
		binary.BigEndian.PutUint16(scratch[0:2], m.ID)
		binary.BigEndian.PutUint16(scratch[2:4], m.Mask)
		binary.BigEndian.PutUint16(scratch[4:6], m.Count)
		binary.BigEndian.PutUint16(scratch[6:8], m.Button)
		n = 8
	case *GrabClipboard:
		code = codeCCLP
		scratch[0] = m.ID
		binary.BigEndian.PutUint32(scratch[1:5], m.Seq)
		n = 5
	case *ScreenSaver:
		code = codeCSEC
		if m.Active {
			scratch[0] = 1
		}
		n = 1
	case *ResetOptions:
		code = codeCROP
	case *InfoAck:
		code = codeCIAK
	case *ServerClose:
		code = codeCBYE
	case *ErrorUnknownClient:
		code = codeEUNK
	case *ErrorBusy:
		code = codeEBSY
	case *ErrorBadClient:
		code = codeEBAD
	default:
		return fmt.Errorf("protocol: unsupported message type: %T", msg)
	}

	return writeFrame(w, code, scratch[:n])
}

// --- Decoding ---

// ReadMessage reads one framed message from r.
func ReadMessage(r io.Reader) (any, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	payloadLen := binary.BigEndian.Uint32(header[:])
	if payloadLen == 0 || payloadLen > MaxFrameSize {
		return nil, ErrFrameSize
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return DecodePayload(payload)
}

// DecodePayload decodes a raw frame payload (the bytes following the
// length prefix). Hello and HelloBack are distinguished from ordinary
// command codes by the leading "Synergy" literal; between the two, Hello
// is exactly 11 bytes and HelloBack always carries a trailing name field.
func DecodePayload(payload []byte) (any, error) {
	if len(payload) >= 7 && string(payload[0:7]) == helloLiteral {
		if len(payload) == 11 {
			return decodeHello(payload)
		}
		return decodeHelloBack(payload)
	}
	if len(payload) < 4 {
		return nil, ErrShortPayload
	}
	var code [4]byte
	copy(code[:], payload[0:4])
	body := payload[4:]

	switch code {
	case codeQINF:
		return &QueryInfo{}, nil
	case codeDINF:
		return decodeInfo(body)
	case codeCALV:
		return &KeepAlive{}, nil
	case codeCNOP:
		return &NoOp{}, nil
	case codeCINN:
		return decodeCursorEnter(body)
	case codeCOUT:
		return &CursorLeave{}, nil
	case codeDMMV:
		return decodeMouseMove(body)
	case codeDMRM:
		return decodeMouseRelMove(body)
	case codeDMDN:
		return decodeMouseButton(body, true)
	case codeDMUP:
		return decodeMouseButton(body, false)
	case codeDMWM:
		return decodeMouseWheel(body)
	case codeDKDN:
		return decodeKeyDown(body)
	case codeDKUP:
		return decodeKeyUp(body)
	case codeDKRP:
		return decodeKeyRepeat(body)
	case codeCCLP:
		return decodeGrabClipboard(body)
	case codeDCLP:
		return decodeSetClipboard(body)
	case codeDSOP:
		return decodeSetDeviceOptions(body)
	case codeCSEC:
		return decodeScreenSaver(body)
	case codeCROP:
		return &ResetOptions{}, nil
	case codeCIAK:
		return &InfoAck{}, nil
	case codeCBYE:
		return &ServerClose{}, nil
	case codeEUNK:
		return &ErrorUnknownClient{}, nil
	case codeEBSY:
		return &ErrorBusy{}, nil
	case codeEBAD:
		return &ErrorBadClient{}, nil
	default:
		payloadCopy := make([]byte, len(body))
		copy(payloadCopy, body)
		return &Unknown{Code: code, Payload: payloadCopy}, nil
	}
}

func decodeHello(payload []byte) (any, error) {
	return &Hello{
		Major: binary.BigEndian.Uint16(payload[7:9]),
		Minor: binary.BigEndian.Uint16(payload[9:11]),
	}, nil
}

func decodeHelloBack(payload []byte) (any, error) {
	if len(payload) < 15 {
		return nil, ErrShortPayload
	}
	nameLen := binary.BigEndian.Uint32(payload[11:15])
	if uint32(len(payload)) < 15+nameLen {
		return nil, ErrShortPayload
	}
	name := payload[15 : 15+nameLen]
	if !utf8.Valid(name) {
		return nil, ErrEncoding
	}
	return &HelloBack{
		Major: binary.BigEndian.Uint16(payload[7:9]),
		Minor: binary.BigEndian.Uint16(payload[9:11]),
		Name:  string(name),
	}, nil
}

func decodeInfo(b []byte) (any, error) {
	if len(b) < 14 {
		return nil, ErrShortPayload
	}
	return &Info{
		X:        int16(binary.BigEndian.Uint16(b[0:2])),
		Y:        int16(binary.BigEndian.Uint16(b[2:4])),
		W:        binary.BigEndian.Uint16(b[4:6]),
		H:        binary.BigEndian.Uint16(b[6:8]),
		WarpZone: binary.BigEndian.Uint16(b[8:10]),
		CursorX:  int16(binary.BigEndian.Uint16(b[10:12])),
		CursorY:  int16(binary.BigEndian.Uint16(b[12:14])),
	}, nil
}

func decodeCursorEnter(b []byte) (any, error) {
	if len(b) < 10 {
		return nil, ErrShortPayload
	}
	return &CursorEnter{
		X:    int16(binary.BigEndian.Uint16(b[0:2])),
		Y:    int16(binary.BigEndian.Uint16(b[2:4])),
		Seq:  binary.BigEndian.Uint32(b[4:8]),
		Mask: binary.BigEndian.Uint16(b[8:10]),
	}, nil
}

func decodeMouseMove(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	return &MouseMove{
		X: int16(binary.BigEndian.Uint16(b[0:2])),
		Y: int16(binary.BigEndian.Uint16(b[2:4])),
	}, nil
}

func decodeMouseRelMove(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	return &MouseRelMove{
		DX: int16(binary.BigEndian.Uint16(b[0:2])),
		DY: int16(binary.BigEndian.Uint16(b[2:4])),
	}, nil
}

func decodeMouseButton(b []byte, press bool) (any, error) {
	if len(b) < 1 {
		return nil, ErrShortPayload
	}
	return &MouseButton{Press: press, Button: b[0]}, nil
}

func decodeMouseWheel(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	return &MouseWheel{
		XDelta: int16(binary.BigEndian.Uint16(b[0:2])),
		YDelta: int16(binary.BigEndian.Uint16(b[2:4])),
	}, nil
}

func decodeKeyDown(b []byte) (any, error) {
	if len(b) < 6 {
		return nil, ErrShortPayload
	}
	return &KeyDown{
		ID:     binary.BigEndian.Uint16(b[0:2]),
		Mask:   binary.BigEndian.Uint16(b[2:4]),
		Button: binary.BigEndian.Uint16(b[4:6]),
	}, nil
}

func decodeKeyUp(b []byte) (any, error) {
	if len(b) < 6 {
		return nil, ErrShortPayload
	}
	return &KeyUp{
		ID:     binary.BigEndian.Uint16(b[0:2]),
		Mask:   binary.BigEndian.Uint16(b[2:4]),
		Button: binary.BigEndian.Uint16(b[4:6]),
	}, nil
}

func decodeKeyRepeat(b []byte) (any, error) {
	if len(b) < 8 {
		return nil, ErrShortPayload
	}
	return &KeyRepeat{
		ID:     binary.BigEndian.Uint16(b[0:2]),
		Mask:   binary.BigEndian.Uint16(b[2:4]),
		Count:  binary.BigEndian.Uint16(b[4:6]),
		Button: binary.BigEndian.Uint16(b[6:8]),
	}, nil
}

func decodeGrabClipboard(b []byte) (any, error) {
	if len(b) < 5 {
		return nil, ErrShortPayload
	}
	return &GrabClipboard{
		ID:  b[0],
		Seq: binary.BigEndian.Uint32(b[1:5]),
	}, nil
}

func decodeSetClipboard(b []byte) (any, error) {
	if len(b) < 10 {
		return nil, ErrShortPayload
	}
	dataLen := binary.BigEndian.Uint32(b[6:10])
	if uint32(len(b)) < 10+dataLen {
		return nil, ErrShortPayload
	}
	data := make([]byte, dataLen)
	copy(data, b[10:10+dataLen])
	return &SetClipboard{
		ID:   b[0],
		Seq:  binary.BigEndian.Uint32(b[1:5]),
		Mark: b[5],
		Data: data,
	}, nil
}

func decodeSetDeviceOptions(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, ErrShortPayload
	}
	count := binary.BigEndian.Uint32(b[0:4])
	if uint32(len(b)) < 4+8*count {
		return nil, ErrShortPayload
	}
	opts := make([]OptionPair, count)
	off := 4
	for i := range opts {
		opts[i] = OptionPair{
			Key:   binary.BigEndian.Uint32(b[off : off+4]),
			Value: binary.BigEndian.Uint32(b[off+4 : off+8]),
		}
		off += 8
	}
	return &SetDeviceOptions{Options: opts}, nil
}

func decodeScreenSaver(b []byte) (any, error) {
	if len(b) < 1 {
		return nil, ErrShortPayload
	}
	return &ScreenSaver{Active: b[0] != 0}, nil
}
