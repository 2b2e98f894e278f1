package registry

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audiomixer/buffer"
	"github.com/opd-ai/audiomixer/jitter"
)

// Options fixes the registry's construction-time configuration.
type Options struct {
	// FrameLength is the frame size in samples.
	FrameLength int
	// RingCapacity is the per-peer ring capacity in samples; must be a
	// positive multiple of FrameLength.
	RingCapacity int
	// JitterThreshold is the extra backlog, in samples, required beyond one
	// frame before a peer starts playback.
	JitterThreshold int
	// LivenessWindow is how long a peer may stay silent before it is
	// retired from mixing.
	LivenessWindow time.Duration
	// MaxPeers bounds the table population; admissions beyond it are
	// rejected with ErrPeerTableFull.
	MaxPeers int
	// EvictStale controls whether the sweep frees retired slots outright or
	// keeps them parked for reuse. Eviction bounds memory; retention
	// preserves the legacy behavior of skipping sends only.
	EvictStale bool
}

// Registry maps peer identities to slots and owns the slot lifecycle.
//
// The registry mutex guards only the identity mapping; it is acquired
// briefly and never held across a ring Read or Write.
type Registry struct {
	mu    sync.RWMutex
	opts  Options
	peers map[string]*Peer
	now   func() time.Time
}

// New creates a registry. Returns buffer.ErrInvalidCapacity if the ring
// capacity is not a positive multiple of the frame length; that is fatal
// misconfiguration.
func New(opts Options) (*Registry, error) {
	// Probe the ring constructor so the capacity invariant is rejected here,
	// at construction, rather than on first admission.
	if _, err := buffer.NewRing(opts.RingCapacity, opts.FrameLength); err != nil {
		return nil, err
	}
	if opts.MaxPeers <= 0 {
		return nil, ErrInvalidMaxPeers
	}
	return &Registry{
		opts:  opts,
		peers: make(map[string]*Peer),
		now:   time.Now,
	}, nil
}

// SetTimeFunc injects a deterministic clock for tests.
func (r *Registry) SetTimeFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Admit handles one inbound frame: it looks up or creates the peer's slot
// and deposits the frame in its ring.
//
// Slot allocation prefers a retired slot over growing the table. When the
// table is at MaxPeers with no retired slot, the frame is dropped and
// ErrPeerTableFull is returned; the mixer is unaffected and the delivery
// layer decides whether the peer retries.
func (r *Registry) Admit(identity string, frame []int16) error {
	if len(frame) != r.opts.FrameLength {
		return ErrBadFrameLength
	}

	peer, created, err := r.lookupOrCreate(identity)
	if err != nil {
		return err
	}
	if created {
		logrus.WithFields(logrus.Fields{
			"peer":    identity,
			"session": peer.Session(),
			"peers":   r.Len(),
		}).Info("Admitted new peer")
	}
	return peer.ingest(frame, r.clock())
}

func (r *Registry) clock() time.Time {
	r.mu.RLock()
	now := r.now
	r.mu.RUnlock()
	return now()
}

// lookupOrCreate resolves an identity to its slot, reusing a retired slot
// before growing the table. The second return value reports whether the
// identity was newly bound to a slot.
func (r *Registry) lookupOrCreate(identity string) (*Peer, bool, error) {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if peer, ok := r.peers[identity]; ok {
		return peer, false, nil
	}

	// Reuse the first retired slot before growing the table.
	for oldIdentity, candidate := range r.peers {
		if candidate.Active() {
			continue
		}
		delete(r.peers, oldIdentity)
		candidate.rebind(identity, now)
		r.peers[identity] = candidate
		logrus.WithFields(logrus.Fields{
			"peer":     identity,
			"replaced": oldIdentity,
		}).Debug("Reused retired peer slot")
		return candidate, true, nil
	}

	if len(r.peers) >= r.opts.MaxPeers {
		logrus.WithFields(logrus.Fields{
			"peer":      identity,
			"max_peers": r.opts.MaxPeers,
		}).Warn("Peer table full, dropping frame")
		return nil, false, ErrPeerTableFull
	}

	ring, err := buffer.NewRing(r.opts.RingCapacity, r.opts.FrameLength)
	if err != nil {
		return nil, false, err
	}
	peer := newPeer(identity, ring, jitter.NewGate(r.opts.FrameLength, r.opts.JitterThreshold), now)
	r.peers[identity] = peer
	return peer, true, nil
}

// Sweep retires peers whose last activity predates the liveness window and,
// when eviction is enabled, frees their slots. Run on a low-frequency
// cadence by the mix loop.
func (r *Registry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, peer := range r.peers {
		if !peer.staleSince(now, r.opts.LivenessWindow) {
			continue
		}
		if peer.Active() {
			peer.retire()
			logrus.WithFields(logrus.Fields{
				"peer":      identity,
				"last_seen": peer.LastSeen(),
			}).Info("Retired silent peer")
		}
		if r.opts.EvictStale {
			delete(r.peers, identity)
			logrus.WithField("peer", identity).Debug("Evicted stale peer slot")
		}
	}
}

// Snapshot returns the active peers at this instant. The mixer iterates the
// returned slice for exactly one cycle.
func (r *Registry) Snapshot() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*Peer, 0, len(r.peers))
	for _, peer := range r.peers {
		if peer.Active() {
			active = append(active, peer)
		}
	}
	return active
}

// Len returns the current table population, active or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// FrameLength returns the configured frame size in samples.
func (r *Registry) FrameLength() int {
	return r.opts.FrameLength
}
