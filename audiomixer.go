package audiomixer

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/audiomixer/config"
	"github.com/opd-ai/audiomixer/mixer"
	"github.com/opd-ai/audiomixer/registry"
	"github.com/opd-ai/audiomixer/transport"
)

// Mixer lifecycle errors.
var (
	// ErrMixerRunning indicates Start was called on a running mixer.
	ErrMixerRunning = errors.New("mixer is already running")

	// ErrMixerNotRunning indicates Stop was called on a stopped mixer.
	ErrMixerNotRunning = errors.New("mixer is not running")
)

// Mixer wires the mixing core to its UDP collaborators and owns the
// lifecycle of the whole engine.
type Mixer struct {
	cfg     config.Config
	reg     *registry.Registry
	metrics *mixer.Metrics

	mu        sync.Mutex
	running   bool
	udp       *transport.UDPTransport
	engine    *mixer.Engine
	sched     *mixer.Scheduler
	heartbeat *transport.Heartbeat
	schedErr  chan error
}

// New builds a mixer from a validated configuration. Misconfiguration
// (above all a ring capacity that is not a multiple of the frame length)
// is fatal here, before any goroutine starts.
func New(cfg config.Config) (*Mixer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := registry.New(registry.Options{
		FrameLength:     cfg.FrameLength,
		RingCapacity:    cfg.RingCapacity,
		JitterThreshold: cfg.JitterThreshold,
		LivenessWindow:  cfg.LivenessWindow.Std(),
		MaxPeers:        cfg.MaxPeers,
		EvictStale:      cfg.EvictStale,
	})
	if err != nil {
		return nil, err
	}

	return &Mixer{
		cfg:     cfg,
		reg:     reg,
		metrics: mixer.NewMetrics(),
	}, nil
}

// Start opens the UDP transport, wires the ingest path into the registry,
// and launches the mix cadence plus the directory heartbeat.
func (m *Mixer) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrMixerRunning
	}

	udp, err := transport.NewUDPTransport(m.cfg.ListenAddr, m.cfg.FrameLength)
	if err != nil {
		return err
	}

	m.udp = udp
	m.engine = mixer.NewEngine(m.reg, udp, m.metrics)
	m.sched = mixer.NewScheduler(m.cfg.FrameInterval(), m.runCycle, m.metrics)

	udp.Listen(m.admit)

	m.schedErr = make(chan error, 1)
	go func() { m.schedErr <- m.sched.Run() }()

	if m.cfg.DirectoryAddr != "" {
		directory := m.cfg.DirectoryAddr
		m.heartbeat = transport.NewHeartbeat(m.cfg.HeartbeatInterval.Std(), func() error {
			return udp.SendRaw(directory, transport.DirectoryAnnouncement(0, 0, 0))
		})
		m.heartbeat.Start()
	}

	m.running = true
	logrus.WithFields(logrus.Fields{
		"listen_addr": udp.LocalAddr().String(),
		"interval":    m.cfg.FrameInterval(),
		"frame_len":   m.cfg.FrameLength,
		"sample_rate": m.cfg.SampleRate,
		"max_peers":   m.cfg.MaxPeers,
	}).Info("Audio mixer started")
	return nil
}

// runCycle is one scheduler tick: retire silent peers, then mix.
func (m *Mixer) runCycle() {
	m.reg.Sweep(time.Now())
	m.engine.MixCycle()
}

// admit is the inbound frame handler. Per-peer admission failures are
// logged and dropped; they never reach the mix path.
func (m *Mixer) admit(identity string, frame []int16) {
	if err := m.reg.Admit(identity, frame); err != nil {
		logrus.WithFields(logrus.Fields{
			"peer":  identity,
			"error": err.Error(),
		}).Debug("Frame admission rejected")
	}
}

// Stop halts the cadence loop, the heartbeat, and the transport, in that
// order, so no cycle runs against a closed socket.
func (m *Mixer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrMixerNotRunning
	}
	m.running = false

	if err := m.sched.Stop(); err != nil {
		return err
	}
	<-m.schedErr

	if m.heartbeat != nil {
		m.heartbeat.Stop()
		m.heartbeat = nil
	}

	err := m.udp.Close()
	logrus.WithField("cycles", m.metrics.Stats().Cycles).Info("Audio mixer stopped")
	return err
}

// IsRunning reports whether the mixer's loops are live.
func (m *Mixer) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// LocalAddr returns the bound frame socket address, or nil before Start.
func (m *Mixer) LocalAddr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.udp == nil {
		return nil
	}
	return m.udp.LocalAddr()
}

// PeerCount returns the current peer table population.
func (m *Mixer) PeerCount() int {
	return m.reg.Len()
}

// Stats returns a snapshot of the engine counters.
func (m *Mixer) Stats() mixer.Snapshot {
	return m.metrics.Stats()
}
