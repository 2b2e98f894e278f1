package audiomixer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/audiomixer/config"
	"github.com/opd-ai/audiomixer/transport"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.FrameLength = 64
	cfg.RingCapacity = 640
	cfg.JitterThreshold = 128
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.DirectoryAddr = ""
	return cfg
}

// TestNewRejectsInvalidConfig verifies misconfiguration is fatal at
// construction, before any socket or goroutine exists.
func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RingCapacity = 100 // not a multiple of 64
	m, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidRingCapacity)
	assert.Nil(t, m)
}

// TestMixerLifecycle verifies Start/Stop state handling.
func TestMixerLifecycle(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)

	assert.False(t, m.IsRunning())
	assert.ErrorIs(t, m.Stop(), ErrMixerNotRunning)

	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	assert.ErrorIs(t, m.Start(), ErrMixerRunning)
	assert.NotNil(t, m.LocalAddr())

	require.NoError(t, m.Stop())
	assert.False(t, m.IsRunning())
	assert.ErrorIs(t, m.Stop(), ErrMixerNotRunning)
}

// TestMixerEndToEnd runs the full path over loopback UDP: two peers send
// constant-valued audio and each must receive the other's contribution,
// never an echo of its own.
func TestMixerEndToEnd(t *testing.T) {
	m, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Stop()

	serverAddr, err := net.ResolveUDPAddr("udp", m.LocalAddr().String())
	require.NoError(t, err)

	dial := func() net.PacketConn {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		return conn
	}
	peerA, peerB := dial(), dial()
	defer peerA.Close()
	defer peerB.Close()

	frame := func(value int16) []byte {
		samples := make([]int16, 64)
		for i := range samples {
			samples[i] = value
		}
		return transport.EncodeFrame(samples)
	}

	// Keep both peers fed past their jitter thresholds while we listen.
	stopFeeding := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopFeeding:
				return
			case <-ticker.C:
				_, _ = peerA.WriteTo(frame(10), serverAddr)
				_, _ = peerB.WriteTo(frame(20), serverAddr)
			}
		}
	}()
	defer close(stopFeeding)

	// Peer A must eventually receive a pure frame of peer B's audio.
	sawOther := false
	deadline := time.Now().Add(5 * time.Second)
	buf := make([]byte, 256)
	for time.Now().Before(deadline) && !sawOther {
		require.NoError(t, peerA.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := peerA.ReadFrom(buf)
		if err != nil {
			continue
		}
		samples, err := transport.DecodeFrame(buf[:n], 64)
		require.NoError(t, err)

		for _, s := range samples {
			// Mix-minus: A's own value 10 must never leak back alone, and
			// when both contribute A hears exactly B.
			assert.NotEqual(t, int16(10), s, "peer A heard its own audio")
		}
		allOther := true
		for _, s := range samples {
			if s != 20 {
				allOther = false
				break
			}
		}
		sawOther = allOther
	}
	assert.True(t, sawOther, "peer A never received peer B's contribution")
	assert.Equal(t, 2, m.PeerCount())
	assert.NotZero(t, m.Stats().Cycles)
}
