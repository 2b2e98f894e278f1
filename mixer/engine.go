package mixer

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audiomixer/jitter"
	"github.com/opd-ai/audiomixer/registry"
)

// Sender is the outbound transmission interface. Send must be bounded-time:
// a slow or unreachable peer may fail but must not stall the cycle.
type Sender interface {
	// Send transmits one composed frame to the peer's transport identity.
	// A short write or transport fault is returned as an error; the engine
	// records it and continues with the remaining peers.
	Send(identity string, frame []int16) error
}

// Engine computes one master mix per cycle and a mix-minus frame per peer.
//
// The master accumulator is int64 against int16 inputs, leaving 48 bits of
// headroom over the sample width; summing even the maximum peer population
// cannot overflow before saturation clips the result back to int16 range.
type Engine struct {
	reg      *registry.Registry
	out      Sender
	metrics  *Metrics
	frameLen int

	// Per-cycle scratch, reused to keep the cycle allocation-free.
	master  []int64
	inFrame []int16
	mix     []int16
}

// NewEngine creates an engine mixing frames from reg and transmitting
// through out. Metrics may be shared with the scheduler.
func NewEngine(reg *registry.Registry, out Sender, metrics *Metrics) *Engine {
	if metrics == nil {
		metrics = NewMetrics()
	}
	frameLen := reg.FrameLength()
	return &Engine{
		reg:      reg,
		out:      out,
		metrics:  metrics,
		frameLen: frameLen,
		master:   make([]int64, frameLen),
		inFrame:  make([]int16, frameLen),
		mix:      make([]int16, frameLen),
	}
}

// Metrics returns the engine's counter set.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// MixCycle runs one complete mix iteration: accumulate the master mix from
// every eligible peer, then compose and transmit each active peer's
// personalized output. Failures are scoped to the offending peer; the cycle
// always completes for the rest.
func (e *Engine) MixCycle() {
	for i := range e.master {
		e.master[i] = 0
	}

	peers := e.reg.Snapshot()

	var framesMixed, framesSent, starvations, sendFailures uint64
	for _, peer := range peers {
		decision, err := peer.NextFrame(e.inFrame)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"peer":  peer.Identity(),
				"error": err.Error(),
			}).Error("Failed to pull frame from peer ring")
			continue
		}
		switch decision {
		case jitter.Read:
			for i, sample := range e.inFrame {
				e.master[i] += int64(sample)
			}
			framesMixed++
		case jitter.Starve:
			starvations++
			logrus.WithFields(logrus.Fields{
				"peer": peer.Identity(),
			}).Warn("Peer starved, re-buffering")
		case jitter.Hold:
			logrus.WithFields(logrus.Fields{
				"peer":    peer.Identity(),
				"backlog": peer.Backlog(),
			}).Debug("Holding back buffering peer")
		}
	}

	for _, peer := range peers {
		e.compose(peer)
		if err := e.out.Send(peer.Identity(), e.mix); err != nil {
			sendFailures++
			logrus.WithFields(logrus.Fields{
				"peer":  peer.Identity(),
				"error": err.Error(),
			}).Warn("Failed to send mixed frame")
			continue
		}
		framesSent++
	}

	e.metrics.addCycle(framesMixed, framesSent, starvations, sendFailures)
}

// compose writes the peer's personalized frame into the mix scratch: the
// master mix minus the peer's own contribution when one was folded in this
// cycle, saturated into int16 range either way.
func (e *Engine) compose(peer *registry.Peer) {
	if own, ok := peer.ConsumeContribution(); ok {
		for i := range e.mix {
			e.mix[i] = clip(e.master[i] - int64(own[i]))
		}
		return
	}
	for i := range e.mix {
		e.mix[i] = clip(e.master[i])
	}
}

// clip saturates a wide sample into the int16 output range. Values beyond
// either bound clamp to the bound; there is never wraparound.
func clip(v int64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
