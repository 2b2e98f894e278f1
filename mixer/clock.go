package mixer

import "time"

// Clock abstracts wall time and sleeping so scheduler behavior is testable
// without real delays.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for at least the given duration.
	Sleep(d time.Duration)
}

// SystemClock is the Clock backed by the runtime's real time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep calls time.Sleep.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
