package mixer

import "sync"

// Metrics tracks engine counters for operators. All methods are safe for
// concurrent use; the engine increments, anything may snapshot.
type Metrics struct {
	mu           sync.Mutex
	cycles       uint64
	framesMixed  uint64
	framesSent   uint64
	starvations  uint64
	sendFailures uint64
	overruns     uint64
}

// Snapshot is a point-in-time copy of the engine counters.
type Snapshot struct {
	// Cycles is the number of completed mix cycles.
	Cycles uint64
	// FramesMixed counts peer frames folded into a master mix.
	FramesMixed uint64
	// FramesSent counts personalized frames handed to the sender.
	FramesSent uint64
	// Starvations counts Started peers that fell below one frame of backlog.
	Starvations uint64
	// SendFailures counts sends that did not fully succeed.
	SendFailures uint64
	// Overruns counts cycles whose computation exceeded the interval.
	Overruns uint64
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) addCycle(framesMixed, framesSent, starvations, sendFailures uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	m.framesMixed += framesMixed
	m.framesSent += framesSent
	m.starvations += starvations
	m.sendFailures += sendFailures
}

func (m *Metrics) addOverrun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overruns++
}

// Stats returns a copy of the current counters.
func (m *Metrics) Stats() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Cycles:       m.cycles,
		FramesMixed:  m.framesMixed,
		FramesSent:   m.framesSent,
		Starvations:  m.starvations,
		SendFailures: m.sendFailures,
		Overruns:     m.overruns,
	}
}
