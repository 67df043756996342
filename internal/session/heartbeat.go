package session

import "time"

// Default heartbeat timing (§4.2). T_timeout is 3x T_keepalive.
const (
	DefaultKeepalive = 3 * time.Second
	DefaultTimeout   = 3 * DefaultKeepalive
)

// Heartbeat drives the keepalive-send / timeout-detect discipline shared by
// both sides of the FSM: emit KeepAlive on Interval with no other traffic,
// and report a timeout if nothing arrives within Timeout of the last
// received message. Grounded on the teacher's heartbeat ticker
// (internal/client.Client.ioLoop): a time.Ticker for the send side, and a
// deadline recomputed from the last-activity timestamp for the receive
// side, both driven from one select loop.
type Heartbeat struct {
	Interval time.Duration
	Timeout  time.Duration

	ticker *time.Ticker
	timer  *time.Timer
}

// NewHeartbeat starts the keepalive ticker and the timeout timer, both
// counted from now.
func NewHeartbeat(interval, timeout time.Duration) *Heartbeat {
	return &Heartbeat{
		Interval: interval,
		Timeout:  timeout,
		ticker:   time.NewTicker(interval),
		timer:    time.NewTimer(timeout),
	}
}

// Tick fires every Interval; the caller should send a KeepAlive in response.
func (h *Heartbeat) Tick() <-chan time.Time { return h.ticker.C }

// Expired fires once, Timeout after the last call to Reset (or since
// creation); the caller should treat this as SessionError.Timeout.
func (h *Heartbeat) Expired() <-chan time.Time { return h.timer.C }

// Reset records activity, pushing the timeout deadline forward. Call this
// on every inbound message, not only KeepAlive — any traffic counts.
func (h *Heartbeat) Reset() {
	if !h.timer.Stop() {
		select {
		case <-h.timer.C:
		default:
		}
	}
	h.timer.Reset(h.Timeout)
}

// Stop releases the underlying timers. Safe to call more than once.
func (h *Heartbeat) Stop() {
	h.ticker.Stop()
	h.timer.Stop()
}
