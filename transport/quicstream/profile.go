package quicstream

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/kborders/synergo/transport"
)

// Stats reports per-connection RTT and loss statistics for a stream
// returned by this package, for callers that opt into periodic profiling.
// The second return value is false for a Stream from another transport.
func Stats(s transport.Stream) (quic.ConnectionStats, bool) {
	qs, ok := s.(stream)
	if !ok {
		return quic.ConnectionStats{}, false
	}
	return qs.qconn.ConnectionStats(), true
}

// LogStats emits one RTT/loss line at Info level, matching the
// teacher's periodic profile line emitted on each heartbeat tick.
func LogStats(log *slog.Logger, s transport.Stream) {
	stats, ok := Stats(s)
	if !ok {
		return
	}
	log.Info("quic stats",
		"rtt_latest", formatDuration(stats.LatestRTT),
		"rtt_min", formatDuration(stats.MinRTT),
		"rtt_smoothed", formatDuration(stats.SmoothedRTT),
		"rtt_jitter", formatDuration(stats.MeanDeviation),
		"pkts_lost", stats.PacketsLost,
		"pkts_sent", stats.PacketsSent,
	)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0ms"
	}
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}
