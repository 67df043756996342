package clipboard

import (
	"strconv"

	"github.com/kborders/synergo/internal/protocol"
)

// Chunk splits a clipboard payload into the start/continue.../end sequence
// of SetClipboard messages described in §4.3: a start chunk whose Data is
// the ASCII-decimal total size, one continuation chunk per 32 KiB boundary,
// and a final empty-data end chunk.
func Chunk(id uint8, seq uint32, data []byte) []*protocol.SetClipboard {
	msgs := []*protocol.SetClipboard{
		{ID: id, Seq: seq, Mark: protocol.ClipboardStart, Data: []byte(strconv.Itoa(len(data)))},
	}
	for off := 0; off < len(data); off += protocol.ClipboardChunkSize {
		end := min(off+protocol.ClipboardChunkSize, len(data))
		msgs = append(msgs, &protocol.SetClipboard{
			ID: id, Seq: seq, Mark: protocol.ClipboardContinue, Data: data[off:end],
		})
	}
	msgs = append(msgs, &protocol.SetClipboard{ID: id, Seq: seq, Mark: protocol.ClipboardEnd})
	return msgs
}
