// fetch/stall_reader.go
package fetch

import (
	"fmt"
	"net"
	"time"
)

// readDeadliner is the slice of net.Conn the stall watchdog needs. Split
// out so tests can drive the rate accounting with plain readers.
type readDeadliner interface {
	Read(p []byte) (int, error)
	SetReadDeadline(t time.Time) error
}

// stallReader aborts a transfer whose throughput stays below a minimum
// byte rate for a full observation window. Protects against connections
// that neither progress nor fail; without it a silent stall ties the run
// up until the overall session deadline.
type stallReader struct {
	r            readDeadliner
	conn         net.Conn // may be nil in tests
	minRate      int64    // bytes per second
	window       time.Duration
	hardDeadline time.Time
	windowStart  time.Time
	windowBytes  int64
	now          func() time.Time
}

// hardDeadline is the overall session deadline; per-read deadlines never
// extend past it.
func newStallReader(r readDeadliner, conn net.Conn, minRate int64, window time.Duration, hardDeadline time.Time) *stallReader {
	sr := &stallReader{
		r:            r,
		conn:         conn,
		minRate:      minRate,
		window:       window,
		hardDeadline: hardDeadline,
		now:          time.Now,
	}
	sr.windowStart = sr.now()
	return sr
}

func (sr *stallReader) Read(p []byte) (int, error) {
	// Bound each individual read so a completely silent peer surfaces
	// within one window instead of hanging until the session deadline.
	if sr.conn != nil {
		limit := sr.now().Add(sr.window)
		if !sr.hardDeadline.IsZero() && sr.hardDeadline.Before(limit) {
			limit = sr.hardDeadline
		}
		sr.conn.SetReadDeadline(limit)
	}

	n, err := sr.r.Read(p)
	sr.windowBytes += int64(n)

	if elapsed := sr.now().Sub(sr.windowStart); elapsed >= sr.window {
		needed := float64(sr.minRate) * elapsed.Seconds()
		if float64(sr.windowBytes) < needed {
			return n, fmt.Errorf("transfer stalled: %d bytes in %s (minimum %d B/s)",
				sr.windowBytes, elapsed.Round(time.Second), sr.minRate)
		}
		sr.windowStart = sr.now()
		sr.windowBytes = 0
	}
	return n, err
}
