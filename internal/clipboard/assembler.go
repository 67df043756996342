// Package clipboard reassembles chunked SetClipboard transfers and splits
// outgoing clipboard payloads into chunks. Grounded on the mutex-guarded,
// byte-accounting ring buffer in the teacher's internal/catchup package:
// same locking discipline (single mutex, defensive copies on Store), same
// idea of eviction/rejection once a size bound is crossed, retargeted here
// from "replay window" bookkeeping to "in-flight transfer" bookkeeping.
package clipboard

import (
	"strconv"
	"sync"
	"time"

	"github.com/kborders/synergo/internal/protocol"
	"github.com/kborders/synergo/internal/session"
)

// unknownSize marks a transfer started by a mark=0 probe that carried no
// declared total (see the mark-semantics open question): the cap is
// enforced against every append instead of a declared total.
const unknownSize = -1

type transferKey struct {
	id  uint8
	seq uint32
}

type inflight struct {
	totalSize int // -1 for a probe with no declared size
	buf       []byte
	startedAt time.Time
	isProbe   bool
}

// Assembler reassembles chunked clipboard transfers keyed by (id, seq). It
// is not safe to share across sessions; each session owns one.
type Assembler struct {
	mu    sync.Mutex
	cap   int
	Now   func() time.Time
	table map[transferKey]*inflight
}

// New creates an Assembler with the given total-size cap. maxBytes<=0 uses
// the default 32 MiB cap.
func New(maxBytes int) *Assembler {
	if maxBytes <= 0 {
		maxBytes = protocol.ClipboardDefaultCap
	}
	return &Assembler{
		cap:   maxBytes,
		Now:   time.Now,
		table: make(map[transferKey]*inflight),
	}
}

// Store feeds one SetClipboard chunk into the assembler. It returns a
// non-nil *session.ClipboardChanged when msg.Mark completes a transfer.
func (a *Assembler) Store(msg *protocol.SetClipboard) (*session.ClipboardChanged, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := transferKey{id: msg.ID, seq: msg.Seq}

	switch msg.Mark {
	case protocol.ClipboardStart:
		if _, exists := a.table[key]; exists {
			return nil, protocol.ErrClipboardOverlap
		}
		if len(msg.Data) == 0 {
			a.table[key] = &inflight{totalSize: unknownSize, startedAt: a.Now(), isProbe: true}
			return nil, nil
		}
		total, err := strconv.Atoi(string(msg.Data))
		if err != nil || total < 0 {
			return nil, protocol.ErrEncoding
		}
		if total > a.cap {
			return nil, protocol.ErrClipboardTooLarge
		}
		a.table[key] = &inflight{totalSize: total, buf: make([]byte, 0, total), startedAt: a.Now()}
		return nil, nil

	case protocol.ClipboardContinue:
		t, exists := a.table[key]
		if !exists {
			return nil, protocol.ErrClipboardOrphan
		}
		t.isProbe = false
		t.buf = append(t.buf, msg.Data...)
		if len(t.buf) > a.cap {
			delete(a.table, key)
			return nil, protocol.ErrClipboardTooLarge
		}
		if t.totalSize != unknownSize && len(t.buf) > t.totalSize {
			delete(a.table, key)
			return nil, protocol.ErrClipboardTooLarge
		}
		return nil, nil

	case protocol.ClipboardEnd:
		t, exists := a.table[key]
		if !exists {
			return nil, protocol.ErrClipboardOrphan
		}
		delete(a.table, key)
		if t.isProbe {
			// A probe with no continuation ever arrived; nothing to emit.
			return nil, nil
		}
		if t.totalSize != unknownSize && len(t.buf) != t.totalSize {
			return nil, protocol.ErrClipboardTooLarge
		}
		return &session.ClipboardChanged{
			ID:     msg.ID,
			Seq:    msg.Seq,
			Format: session.ClipboardFormat(msg.ID),
			Data:   t.buf,
		}, nil

	default:
		return nil, protocol.ErrEncoding
	}
}

// Sweep discards probe transfers (a mark=0 start with no declared size)
// that have received no continuation within keepalive of being started. The
// caller invokes this on its own heartbeat tick.
func (a *Assembler) Sweep(keepalive time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.Now()
	for key, t := range a.table {
		if t.isProbe && now.Sub(t.startedAt) > keepalive {
			delete(a.table, key)
		}
	}
}

// Pending reports the number of in-flight transfers, for tests and metrics.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.table)
}
