package protocol

import (
	"bytes"
	"testing"
)

func TestHelloRoundTrip(t *testing.T) {
	original := &Hello{Major: 1, Minor: 6}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded, ok := msg.(*Hello)
	if !ok {
		t.Fatalf("expected *Hello, got %T", msg)
	}
	if *decoded != *original {
		t.Fatalf("hello mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestHelloWireBytes(t *testing.T) {
	// End-to-end scenario A: Hello{1,6} is an 11-byte payload after the
	// 4-byte length prefix.
	var buf bytes.Buffer
	if err := WriteMessage(&buf, &Hello{Major: 1, Minor: 6}); err != nil {
		t.Fatal(err)
	}
	want := []byte("\x00\x00\x00\x0bSynergy\x00\x01\x00\x06")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire mismatch: got %q, want %q", buf.Bytes(), want)
	}
}

func TestHelloBackRoundTrip(t *testing.T) {
	for _, name := range []string{"", "laptop", "a-very-long-screen-name"} {
		original := &HelloBack{Major: 1, Minor: 6, Name: name}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, original); err != nil {
			t.Fatal(err)
		}
		msg, err := ReadMessage(&buf)
		if err != nil {
			t.Fatal(err)
		}
		decoded, ok := msg.(*HelloBack)
		if !ok {
			t.Fatalf("expected *HelloBack, got %T", msg)
		}
		if *decoded != *original {
			t.Fatalf("hello back mismatch: got %+v, want %+v", decoded, original)
		}
	}
}

func TestInfoRoundTrip(t *testing.T) {
	original := &Info{X: 0, Y: 0, W: 1280, H: 800, WarpZone: 0, CursorX: 640, CursorY: 400}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*Info)
	if *decoded != *original {
		t.Fatalf("info mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestCursorEnterRoundTrip(t *testing.T) {
	// The numeric example from the edge-crossing property.
	original := &CursorEnter{X: 1279, Y: 400, Seq: 1, Mask: 0}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*CursorEnter)
	if *decoded != *original {
		t.Fatalf("cursor enter mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMouseRelMoveNegative(t *testing.T) {
	original := &MouseRelMove{DX: -1, DY: 0}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*MouseRelMove)
	if *decoded != *original {
		t.Fatalf("rel move mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMouseButtonRoundTrip(t *testing.T) {
	for _, press := range []bool{true, false} {
		original := &MouseButton{Press: press, Button: 3}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, original); err != nil {
			t.Fatal(err)
		}
		msg, err := ReadMessage(&buf)
		if err != nil {
			t.Fatal(err)
		}
		decoded := msg.(*MouseButton)
		if *decoded != *original {
			t.Fatalf("button mismatch: got %+v, want %+v", decoded, original)
		}
	}
}

func TestKeyEventsRoundTrip(t *testing.T) {
	down := &KeyDown{ID: 0x61, Mask: 0x02, Button: 30}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, down); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if *msg.(*KeyDown) != *down {
		t.Fatalf("key down mismatch")
	}

	repeat := &KeyRepeat{ID: 0x61, Mask: 0x02, Count: 3, Button: 30}
	buf.Reset()
	if err := WriteMessage(&buf, repeat); err != nil {
		t.Fatal(err)
	}
	msg, err = ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if *msg.(*KeyRepeat) != *repeat {
		t.Fatalf("key repeat mismatch")
	}
}

func TestGrabClipboardRoundTrip(t *testing.T) {
	original := &GrabClipboard{ID: 1, Seq: 42}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*GrabClipboard)
	if *decoded != *original {
		t.Fatalf("grab clipboard mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestSetClipboardRoundTrip(t *testing.T) {
	original := &SetClipboard{ID: 0, Seq: 1, Mark: ClipboardContinue, Data: []byte("hello")}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*SetClipboard)
	if decoded.ID != original.ID || decoded.Seq != original.Seq || decoded.Mark != original.Mark {
		t.Fatalf("set clipboard fields mismatch")
	}
	if !bytes.Equal(decoded.Data, original.Data) {
		t.Fatalf("set clipboard data mismatch: got %q, want %q", decoded.Data, original.Data)
	}
}

func TestSetClipboardEmptyData(t *testing.T) {
	original := &SetClipboard{ID: 0, Seq: 1, Mark: ClipboardEnd, Data: nil}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*SetClipboard)
	if len(decoded.Data) != 0 {
		t.Fatalf("expected empty data, got %d bytes", len(decoded.Data))
	}
}

func TestSetDeviceOptionsRoundTrip(t *testing.T) {
	original := &SetDeviceOptions{Options: []OptionPair{
		{Key: 1, Value: 100},
		{Key: 2, Value: 200},
		{Key: 3, Value: 300},
	}}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*SetDeviceOptions)
	if len(decoded.Options) != len(original.Options) {
		t.Fatalf("option count mismatch: got %d, want %d", len(decoded.Options), len(original.Options))
	}
	for i := range original.Options {
		if decoded.Options[i] != original.Options[i] {
			t.Fatalf("option %d mismatch: got %+v, want %+v", i, decoded.Options[i], original.Options[i])
		}
	}
}

func TestSetDeviceOptionsEmpty(t *testing.T) {
	original := &SetDeviceOptions{}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, original); err != nil {
		t.Fatal(err)
	}
	msg, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	decoded := msg.(*SetDeviceOptions)
	if len(decoded.Options) != 0 {
		t.Fatalf("expected no options, got %d", len(decoded.Options))
	}
}

func TestNoPayloadMessagesRoundTrip(t *testing.T) {
	msgs := []any{
		&QueryInfo{}, &KeepAlive{}, &NoOp{}, &CursorLeave{}, &ResetOptions{},
		&InfoAck{}, &ServerClose{}, &ErrorUnknownClient{}, &ErrorBusy{}, &ErrorBadClient{},
	}
	for _, m := range msgs {
		var buf bytes.Buffer
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatalf("%T: %v", m, err)
		}
		decoded, err := ReadMessage(&buf)
		if err != nil {
			t.Fatalf("%T: %v", m, err)
		}
		if decoded == nil {
			t.Fatalf("%T: decoded nil", m)
		}
	}
}

func TestUnknownMessageRoundTrip(t *testing.T) {
	// End-to-end scenario C.
	original := []byte("\x00\x00\x00\x06ZZZZ\x01\x02")
	msg, err := ReadMessage(bytes.NewReader(original))
	if err != nil {
		t.Fatal(err)
	}
	unk, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("expected *Unknown, got %T", msg)
	}
	if string(unk.Code[:]) != "ZZZZ" {
		t.Fatalf("code mismatch: got %q", unk.Code)
	}
	if !bytes.Equal(unk.Payload, []byte{0x01, 0x02}) {
		t.Fatalf("payload mismatch: got %v", unk.Payload)
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, unk); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), original) {
		t.Fatalf("re-encode mismatch: got %q, want %q", buf.Bytes(), original)
	}
}

func TestFrameSizeZero(t *testing.T) {
	frame := []byte{0x00, 0x00, 0x00, 0x00}
	_, err := ReadMessage(bytes.NewReader(frame))
	if err != ErrFrameSize {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}

func TestFrameSizeOverMax(t *testing.T) {
	var header [4]byte
	overMax := uint32(MaxFrameSize + 1)
	header[0] = byte(overMax >> 24)
	header[1] = byte(overMax >> 16)
	header[2] = byte(overMax >> 8)
	header[3] = byte(overMax)
	// No payload follows; the reader must reject before trying to read it.
	_, err := ReadMessage(bytes.NewReader(header[:]))
	if err != ErrFrameSize {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}

func TestHelloBackInvalidUTF8(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, &HelloBack{Major: 1, Minor: 6, Name: "ok"}); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	// Corrupt the name bytes to an invalid UTF-8 sequence.
	raw[len(raw)-1] = 0xff
	_, err := ReadMessage(bytes.NewReader(raw))
	if err != ErrEncoding {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestMultipleMessagesInSequence(t *testing.T) {
	var buf bytes.Buffer
	msgs := []any{
		&Hello{Major: 1, Minor: 6},
		&KeepAlive{},
		&CursorEnter{X: 100, Y: 200, Seq: 1, Mask: 0},
		&MouseRelMove{DX: 5, DY: -5},
		&SetClipboard{ID: 0, Seq: 1, Mark: ClipboardEnd},
	}
	for _, m := range msgs {
		if err := WriteMessage(&buf, m); err != nil {
			t.Fatal(err)
		}
	}
	for i := range msgs {
		if _, err := ReadMessage(&buf); err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
	}
}

// --- Fuzz tests ---

func FuzzDecodePayload(f *testing.F) {
	var buf bytes.Buffer
	WriteMessage(&buf, &Hello{Major: 1, Minor: 6})
	f.Add(buf.Bytes()[4:])

	buf.Reset()
	WriteMessage(&buf, &CursorEnter{X: 10, Y: 20, Seq: 1, Mask: 0})
	f.Add(buf.Bytes()[4:])

	f.Fuzz(func(t *testing.T, payload []byte) {
		DecodePayload(payload)
	})
}

func FuzzReadMessage(f *testing.F) {
	var buf bytes.Buffer
	WriteMessage(&buf, &Info{W: 1920, H: 1080})
	f.Add(buf.Bytes())
	f.Fuzz(func(t *testing.T, data []byte) {
		ReadMessage(bytes.NewReader(data))
	})
}

func FuzzRoundTripUnknown(f *testing.F) {
	f.Add([]byte("ZZZZ"), []byte{0x01, 0x02})
	f.Add([]byte("XABC"), []byte{})
	f.Fuzz(func(t *testing.T, code []byte, payload []byte) {
		if len(code) != 4 {
			return
		}
		var c [4]byte
		copy(c[:], code)
		original := &Unknown{Code: c, Payload: payload}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, original); err != nil {
			t.Fatal(err)
		}
		msg, err := ReadMessage(&buf)
		if err != nil {
			t.Fatal(err)
		}
		decoded, ok := msg.(*Unknown)
		if !ok {
			// A fuzzed code may collide with a known command code.
			return
		}
		if decoded.Code != original.Code {
			t.Fatalf("code mismatch")
		}
		if !bytes.Equal(decoded.Payload, original.Payload) {
			t.Fatalf("payload mismatch")
		}
	})
}

func FuzzRoundTripMouseRelMove(f *testing.F) {
	f.Add(int16(-1), int16(0))
	f.Add(int16(32767), int16(-32768))
	f.Fuzz(func(t *testing.T, dx, dy int16) {
		original := &MouseRelMove{DX: dx, DY: dy}
		var buf bytes.Buffer
		if err := WriteMessage(&buf, original); err != nil {
			t.Fatal(err)
		}
		msg, err := ReadMessage(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if *msg.(*MouseRelMove) != *original {
			t.Fatalf("mismatch: got %+v, want %+v", msg, original)
		}
	})
}
