package jitter

// State is the playback state of a peer's gate.
type State int

const (
	// Buffering indicates the peer is accumulating backlog and contributes
	// silence to the mix.
	Buffering State = iota
	// Started indicates the peer has met the jitter threshold and is read
	// every mix cycle.
	Started
)

// String returns a human-readable state name for logging.
func (s State) String() string {
	switch s {
	case Buffering:
		return "buffering"
	case Started:
		return "started"
	default:
		return "unknown"
	}
}

// Decision is the per-cycle verdict the gate hands the mixer for one peer.
type Decision int

const (
	// Hold means the peer stays in Buffering: contribute silence, do not
	// advance the ring, preserve the accumulated backlog.
	Hold Decision = iota
	// Read means one frame may be consumed and folded into the master mix.
	Read
	// Starve means a Started peer's backlog dropped below one frame. The
	// caller must reset the ring; the gate has already fallen back to
	// Buffering. The peer contributes silence this cycle.
	Starve
)

// Gate is the jitter state machine for a single peer.
//
// It is not safe for concurrent use; callers hold the owning peer's lock,
// and in practice only the mixer goroutine drives it.
type Gate struct {
	frameLen  int
	threshold int
	state     State
}

// NewGate creates a gate for frames of frameLen samples that starts playback
// once the backlog reaches frameLen + threshold samples.
func NewGate(frameLen, threshold int) *Gate {
	return &Gate{
		frameLen:  frameLen,
		threshold: threshold,
		state:     Buffering,
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	return g.state
}

// Observe advances the state machine for one mix cycle given the peer's
// current backlog and returns the mixer's marching orders.
//
// Transitions:
//   - Buffering -> Started when backlog >= frameLen + threshold.
//   - Started -> Buffering when backlog < frameLen (starvation).
func (g *Gate) Observe(backlog int) Decision {
	if g.state == Buffering {
		if backlog >= g.frameLen+g.threshold {
			g.state = Started
			return Read
		}
		return Hold
	}
	if backlog < g.frameLen {
		g.state = Buffering
		return Starve
	}
	return Read
}

// Reset forces the gate back to Buffering. Used when a slot is reused for a
// new peer or a re-admitted peer's ring held stale audio.
func (g *Gate) Reset() {
	g.state = Buffering
}
