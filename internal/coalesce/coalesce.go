// Package coalesce batches bursts of relative mouse motion into fewer wire
// messages.
//
// A physical mouse can produce hundreds of MouseRelMove samples per second;
// relative deltas are commutative, so a burst of them can be summed into one
// message without changing the result the remote cursor ends up at. The
// Coalescer accumulates (dx, dy) pairs and flushes when:
//
//   - 2ms deadline expires (measured from the first delta in the batch, NOT
//     reset by subsequent adds — deadline semantics, not debounce)
//   - Threshold deltas accumulated in one batch
//   - Explicit Flush() at a screen-change boundary, so a CursorEnter/Leave
//     pair is never reordered against pending motion
package coalesce

import "time"

const (
	// Delay is the coalescing deadline from the first delta in a batch.
	Delay = 2 * time.Millisecond

	// Threshold triggers an immediate flush when reached.
	Threshold = 64
)

// Coalescer accumulates relative motion and flushes on deadline or
// threshold. All methods are used from a single goroutine (the router's
// Dispatch path).
type Coalescer struct {
	dx, dy int
	count  int
	timer  *time.Timer
	armed  bool
}

// New creates a Coalescer with default settings.
func New() *Coalescer {
	t := time.NewTimer(0)
	if !t.Stop() {
		<-t.C
	}
	return &Coalescer{timer: t}
}

// Add accumulates one (dx, dy) sample. Returns true if the threshold was
// hit and the caller should flush immediately.
//
// Arms the deadline timer on the first sample in a batch. Subsequent adds
// do NOT reset the timer.
func (c *Coalescer) Add(dx, dy int) bool {
	if !c.armed {
		c.timer.Reset(Delay)
		c.armed = true
	}
	c.dx += dx
	c.dy += dy
	c.count++
	return c.count >= Threshold
}

// Flush returns the summed delta and resets the batch. ok is false if
// nothing was pending.
func (c *Coalescer) Flush() (dx, dy int, ok bool) {
	if c.count == 0 {
		return 0, 0, false
	}
	if c.armed {
		if !c.timer.Stop() {
			select {
			case <-c.timer.C:
			default:
			}
		}
		c.armed = false
	}
	dx, dy = c.dx, c.dy
	c.dx, c.dy, c.count = 0, 0, 0
	return dx, dy, true
}

// Timer returns the channel that fires when the coalescing deadline
// expires. Returns a nil channel when no deadline is active (nil channels
// block forever in select, effectively disabling the case):
//
//	case <-coal.Timer():
//	    dx, dy, _ := coal.Flush()
//	    // send MouseRelMove{dx, dy}
func (c *Coalescer) Timer() <-chan time.Time {
	if !c.armed {
		return nil
	}
	return c.timer.C
}

// Stop releases the timer. Call in defer when done with the Coalescer.
func (c *Coalescer) Stop() {
	c.timer.Stop()
	c.armed = false
}

// Pending returns the number of buffered deltas.
func (c *Coalescer) Pending() int {
	return c.count
}
