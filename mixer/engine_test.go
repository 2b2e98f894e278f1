package mixer

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audiomixer/jitter"
	"github.com/opd-ai/audiomixer/registry"
)

// captureSender records every frame handed to it, keyed by peer identity,
// and can be told to fail sends for specific peers.
type captureSender struct {
	mu     sync.Mutex
	frames map[string][][]int16
	fail   map[string]error
}

func newCaptureSender() *captureSender {
	return &captureSender{
		frames: make(map[string][][]int16),
		fail:   make(map[string]error),
	}
}

func (s *captureSender) Send(identity string, frame []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[identity]; err != nil {
		return err
	}
	s.frames[identity] = append(s.frames[identity], append([]int16(nil), frame...))
	return nil
}

func (s *captureSender) sent(identity string) [][]int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[identity]
}

func (s *captureSender) last(identity string) []int16 {
	frames := s.sent(identity)
	if len(frames) == 0 {
		return nil
	}
	return frames[len(frames)-1]
}

const (
	testFrameLen  = 256
	testCapacity  = 2560
	testThreshold = 512
)

func newTestEngine(t *testing.T) (*Engine, *registry.Registry, *captureSender) {
	t.Helper()
	reg, err := registry.New(registry.Options{
		FrameLength:     testFrameLen,
		RingCapacity:    testCapacity,
		JitterThreshold: testThreshold,
		LivenessWindow:  time.Second,
		MaxPeers:        32,
		EvictStale:      true,
	})
	require.NoError(t, err)
	out := newCaptureSender()
	return NewEngine(reg, out, nil), reg, out
}

func makeFrame(value int16) []int16 {
	frame := make([]int16, testFrameLen)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func admitFrames(t *testing.T, reg *registry.Registry, identity string, value int16, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, reg.Admit(identity, makeFrame(value)))
	}
}

// TestMixCycleNoPeers verifies an empty registry yields a clean cycle with
// nothing transmitted.
func TestMixCycleNoPeers(t *testing.T) {
	engine, _, out := newTestEngine(t)

	engine.MixCycle()

	assert.Empty(t, out.frames)
	stats := engine.Metrics().Stats()
	assert.Equal(t, uint64(1), stats.Cycles)
	assert.Zero(t, stats.FramesMixed)
	assert.Zero(t, stats.FramesSent)
}

// TestSinglePeerSelfCancellation verifies the mix-minus property: the only
// contributor hears pure silence because the master mix is exactly its own
// contribution.
func TestSinglePeerSelfCancellation(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "a:1", 100, 4)

	engine.MixCycle()

	frames := out.sent("a:1")
	require.Len(t, frames, 1)
	assert.Equal(t, make([]int16, testFrameLen), frames[0])
	assert.Equal(t, uint64(1), engine.Metrics().Stats().FramesMixed)
}

// TestTwoPeerMixMinus verifies each of two contributing peers receives
// exactly the other's raw contribution.
func TestTwoPeerMixMinus(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "a:1", 10, 4)
	admitFrames(t, reg, "b:2", 20, 4)

	engine.MixCycle()

	assert.Equal(t, makeFrame(20), out.last("a:1"))
	assert.Equal(t, makeFrame(10), out.last("b:2"))
}

// TestBufferingPeerHearsFullMaster verifies a peer still below its jitter
// threshold receives the unmodified master mix and its backlog is preserved.
func TestBufferingPeerHearsFullMaster(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "talker:1", 100, 4)
	admitFrames(t, reg, "late:2", 50, 1) // 256 < 768, stays buffering

	engine.MixCycle()

	assert.Equal(t, make([]int16, testFrameLen), out.last("talker:1"))
	assert.Equal(t, makeFrame(100), out.last("late:2"))

	// The buffering peer's ring was not advanced.
	for _, peer := range reg.Snapshot() {
		if peer.Identity() == "late:2" {
			assert.Equal(t, testFrameLen, peer.Backlog())
			assert.Equal(t, jitter.Buffering, peer.GateState())
		}
	}
}

// TestStarvationForcesRebuffering verifies a Started peer that runs dry
// falls back to Buffering, resets its ring, and contributes silence.
func TestStarvationForcesRebuffering(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "a:1", 100, 3) // exactly F + threshold

	// Three cycles drain the backlog, the fourth starves.
	for i := 0; i < 4; i++ {
		engine.MixCycle()
	}

	stats := engine.Metrics().Stats()
	assert.Equal(t, uint64(3), stats.FramesMixed)
	assert.Equal(t, uint64(1), stats.Starvations)

	peer := reg.Snapshot()[0]
	assert.Equal(t, jitter.Buffering, peer.GateState())
	assert.Equal(t, 0, peer.Backlog())

	// The starved cycle still transmitted a frame: the silent master.
	frames := out.sent("a:1")
	require.Len(t, frames, 4)
	assert.Equal(t, make([]int16, testFrameLen), frames[3])
}

// TestClippingSaturates verifies saturation arithmetic: a sum beyond the
// int16 range clamps to the bound instead of wrapping.
func TestClippingSaturates(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "a:1", 30000, 4)
	admitFrames(t, reg, "b:2", 30000, 4)
	admitFrames(t, reg, "c:3", 30000, 4)

	engine.MixCycle()

	// Each peer hears the other two: 60000, clipped to MaxInt16.
	for _, identity := range []string{"a:1", "b:2", "c:3"} {
		assert.Equal(t, makeFrame(math.MaxInt16), out.last(identity), "peer %s", identity)
	}
}

// TestClippingSaturatesNegative verifies the lower bound clamps symmetrically.
func TestClippingSaturatesNegative(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "a:1", -30000, 4)
	admitFrames(t, reg, "b:2", -30000, 4)
	admitFrames(t, reg, "c:3", -30000, 4)

	engine.MixCycle()

	for _, identity := range []string{"a:1", "b:2", "c:3"} {
		assert.Equal(t, makeFrame(math.MinInt16), out.last(identity), "peer %s", identity)
	}
}

// TestSendFailureScopedToPeer verifies a failing send is recorded but never
// aborts the cycle for the remaining peers.
func TestSendFailureScopedToPeer(t *testing.T) {
	engine, reg, out := newTestEngine(t)
	admitFrames(t, reg, "good:1", 10, 4)
	admitFrames(t, reg, "bad:2", 20, 4)
	out.fail["bad:2"] = errors.New("connection refused")

	engine.MixCycle()

	require.Len(t, out.sent("good:1"), 1)
	assert.Empty(t, out.sent("bad:2"))

	stats := engine.Metrics().Stats()
	assert.Equal(t, uint64(1), stats.SendFailures)
	assert.Equal(t, uint64(1), stats.FramesSent)
}

// TestClip exercises the saturation helper directly.
func TestClip(t *testing.T) {
	assert.Equal(t, int16(0), clip(0))
	assert.Equal(t, int16(12345), clip(12345))
	assert.Equal(t, int16(math.MaxInt16), clip(math.MaxInt16))
	assert.Equal(t, int16(math.MaxInt16), clip(math.MaxInt16+1))
	assert.Equal(t, int16(math.MinInt16), clip(math.MinInt16))
	assert.Equal(t, int16(math.MinInt16), clip(math.MinInt16-1))
	assert.Equal(t, int16(math.MaxInt16), clip(1<<40))
	assert.Equal(t, int16(math.MinInt16), clip(-(1 << 40)))
}

// TestEndToEndThresholdScenario walks the configured reference scenario:
// frame length 256, capacity 2560, jitter threshold 512. A peer below
// one frame plus the threshold is held back; once the threshold is met the
// engine mixes its audio, and as the only contributor it hears silence.
func TestEndToEndThresholdScenario(t *testing.T) {
	engine, reg, out := newTestEngine(t)

	// Two frames of backlog: 512 < 256+512, so the first cycle holds back.
	admitFrames(t, reg, "x:1", 100, 2)
	engine.MixCycle()

	require.Len(t, out.sent("x:1"), 1)
	assert.Equal(t, make([]int16, testFrameLen), out.last("x:1"))
	assert.Zero(t, engine.Metrics().Stats().FramesMixed)
	assert.Equal(t, testFrameLen*2, reg.Snapshot()[0].Backlog())

	// Two more frames push the backlog to 1024 >= 768: playback starts.
	admitFrames(t, reg, "x:1", 100, 2)
	engine.MixCycle()

	assert.Equal(t, uint64(1), engine.Metrics().Stats().FramesMixed)
	assert.Equal(t, jitter.Started, reg.Snapshot()[0].GateState())
	// Sole contributor: personalized output is all-zero despite non-zero input.
	assert.Equal(t, make([]int16, testFrameLen), out.last("x:1"))
}

// TestConcurrentIngestDuringMix exercises the locking discipline: frames
// arriving while cycles run must never corrupt state or trip the race
// detector.
func TestConcurrentIngestDuringMix(t *testing.T) {
	engine, reg, _ := newTestEngine(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = reg.Admit("a:1", makeFrame(int16(i)))
			_ = reg.Admit("b:2", makeFrame(int16(-i)))
		}
	}()

	for i := 0; i < 100; i++ {
		engine.MixCycle()
	}
	<-done

	assert.Equal(t, uint64(100), engine.Metrics().Stats().Cycles)
}
