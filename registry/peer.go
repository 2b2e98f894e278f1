package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/audiomixer/buffer"
	"github.com/opd-ai/audiomixer/jitter"
)

// Peer is one entry in the registry: a network identity bound to a slot
// holding that peer's ring, jitter gate, and mixing bookkeeping.
//
// The peer mutex serializes the two goroutines that touch a slot: the
// ingest path (Write into the ring, liveness updates) and the mixer (Read
// from the ring). The mix-minus fields contributed/own are only ever
// touched by the mixer goroutine but are kept under the same lock so a
// slot rebind cannot interleave with a compose.
type Peer struct {
	mu       sync.Mutex
	identity string
	session  uuid.UUID
	ring     *buffer.Ring
	gate     *jitter.Gate
	active   bool
	lastSeen time.Time

	// Mix-minus bookkeeping: whether this peer's frame was folded into the
	// master mix this cycle, and the folded frame itself.
	contributed bool
	own         []int16
}

func newPeer(identity string, ring *buffer.Ring, gate *jitter.Gate, now time.Time) *Peer {
	return &Peer{
		identity: identity,
		session:  uuid.New(),
		ring:     ring,
		gate:     gate,
		active:   true,
		lastSeen: now,
		own:      make([]int16, ring.FrameLength()),
	}
}

// Identity returns the network identity currently bound to this slot.
func (p *Peer) Identity() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identity
}

// Session returns the session identifier assigned when the identity was
// bound to this slot. A reused slot gets a fresh session.
func (p *Peer) Session() uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// LastSeen returns the timestamp of the peer's most recent inbound frame.
func (p *Peer) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Active reports whether the peer is currently eligible for mixing.
func (p *Peer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// GateState returns the current jitter gate state.
func (p *Peer) GateState() jitter.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gate.State()
}

// Backlog returns the peer's current unread backlog in samples.
func (p *Peer) Backlog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.Backlog()
}

// ingest writes one inbound frame and refreshes liveness.
//
// If the slot was retired or its unflushed backlog has grown within one
// frame of the capacity (the writer is about to lap the reader), the ring
// holds stale audio and is reset before the new frame lands, forcing the
// gate back through its buffering threshold.
func (p *Peer) ingest(frame []int16, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A backlog at capacity minus one frame means this write would wrap the
	// write cursor onto the read cursor, collapsing the backlog to zero.
	if !p.active || p.ring.Backlog() >= p.ring.Capacity()-p.ring.FrameLength() {
		p.ring.Reset()
		p.gate.Reset()
	}
	if err := p.ring.Write(frame); err != nil {
		return err
	}
	p.active = true
	p.lastSeen = now
	return nil
}

// NextFrame drives the peer's jitter gate for one mix cycle.
//
// On jitter.Read, one frame is copied into dst, remembered as the peer's
// own contribution for mix-minus, and the contributed flag is set. On
// jitter.Starve the ring is reset (re-buffering) and on both Starve and
// Hold the peer contributes silence this cycle.
func (p *Peer) NextFrame(dst []int16) (jitter.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	decision := p.gate.Observe(p.ring.Backlog())
	switch decision {
	case jitter.Read:
		if err := p.ring.Read(dst); err != nil {
			return decision, err
		}
		copy(p.own, dst)
		p.contributed = true
	case jitter.Starve:
		p.ring.Reset()
		p.contributed = false
	case jitter.Hold:
		p.contributed = false
	}
	return decision, nil
}

// ConsumeContribution returns the frame folded into the current master mix
// and clears the contributed flag, so each contribution is subtracted from
// exactly one transmitted mix. The returned slice is owned by the peer and
// only valid until the next NextFrame call.
func (p *Peer) ConsumeContribution() ([]int16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.contributed {
		return nil, false
	}
	p.contributed = false
	return p.own, true
}

// retire marks the peer inactive. The slot and its buffered audio are kept
// until the slot is reused or evicted.
func (p *Peer) retire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// rebind points a retired slot at a new identity, discarding all state
// accumulated for the previous occupant.
func (p *Peer) rebind(identity string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.identity = identity
	p.session = uuid.New()
	p.ring.Reset()
	p.gate.Reset()
	p.active = true
	p.lastSeen = now
	p.contributed = false
}

// staleSince reports whether the peer's last activity predates the liveness
// window ending at now.
func (p *Peer) staleSince(now time.Time, window time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Sub(p.lastSeen) > window
}
