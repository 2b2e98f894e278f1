package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Validation errors. Classified with errors.Is by callers; all are fatal to
// engine startup.
var (
	// ErrInvalidFrameLength indicates a non-positive frame length.
	ErrInvalidFrameLength = errors.New("frame length must be positive")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// ErrInvalidRingCapacity indicates a ring capacity that is not a
	// positive multiple of the frame length.
	ErrInvalidRingCapacity = errors.New("ring capacity must be a positive multiple of the frame length")

	// ErrInvalidJitterThreshold indicates a negative threshold, or one so
	// large the start condition (one frame plus threshold) can never fit in
	// the ring.
	ErrInvalidJitterThreshold = errors.New("jitter threshold must be non-negative and leave room in the ring")

	// ErrInvalidLivenessWindow indicates a non-positive liveness window.
	ErrInvalidLivenessWindow = errors.New("liveness window must be positive")

	// ErrInvalidMaxPeers indicates a non-positive population bound.
	ErrInvalidMaxPeers = errors.New("maximum peer population must be positive")
)

// Default deployment constants, matching the classic mixer.
const (
	DefaultSampleRate        = 22050
	DefaultFrameLength       = 512
	DefaultRingFrames        = 10
	DefaultJitterMillis      = 20
	DefaultLivenessWindow    = Duration(time.Second)
	DefaultMaxPeers          = 1000
	DefaultListenAddr        = ":55443"
	DefaultHeartbeatInterval = Duration(time.Second)
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// like "750ms" or "2s", or from integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full construction-time configuration surface.
type Config struct {
	// FrameLength is the frame size in samples.
	FrameLength int `yaml:"frame_length"`

	// SampleRate is the PCM sample rate in Hz. Together with FrameLength it
	// fixes the mix cadence: interval = FrameLength / SampleRate.
	SampleRate int `yaml:"sample_rate"`

	// RingCapacity is the per-peer ring size in samples. Must be a positive
	// multiple of FrameLength.
	RingCapacity int `yaml:"ring_capacity"`

	// JitterThreshold is the backlog margin, in samples, required beyond
	// one frame before a peer starts playback. Zero derives the default
	// from 20 ms at SampleRate.
	JitterThreshold int `yaml:"jitter_threshold"`

	// LivenessWindow is how long a peer may stay silent before it is
	// retired from mixing.
	LivenessWindow Duration `yaml:"liveness_window"`

	// MaxPeers bounds the peer table population.
	MaxPeers int `yaml:"max_peers"`

	// EvictStale frees retired slots during the liveness sweep. Disable to
	// keep the legacy skip-only behavior.
	EvictStale bool `yaml:"evict_stale"`

	// ListenAddr is the UDP address frames arrive on.
	ListenAddr string `yaml:"listen_addr"`

	// DirectoryAddr is the directory service the heartbeat announces to.
	// Empty disables the heartbeat.
	DirectoryAddr string `yaml:"directory_addr"`

	// HeartbeatInterval is the directory announcement cadence.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
}

// Default returns the classic mixer deployment configuration.
func Default() Config {
	return Config{
		FrameLength:       DefaultFrameLength,
		SampleRate:        DefaultSampleRate,
		RingCapacity:      DefaultRingFrames * DefaultFrameLength,
		JitterThreshold:   DefaultJitterMillis * DefaultSampleRate / 1000,
		LivenessWindow:    DefaultLivenessWindow,
		MaxPeers:          DefaultMaxPeers,
		EvictStale:        true,
		ListenAddr:        DefaultListenAddr,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()
	// Leave the threshold unset so an omitted field derives from the
	// configured sample rate rather than inheriting the default rate's value.
	cfg.JitterThreshold = 0

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.JitterThreshold == 0 {
		cfg.JitterThreshold = DefaultJitterMillis * cfg.SampleRate / 1000
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the construction-time invariants. Any error here is fatal:
// the engine must refuse to start rather than mix with broken geometry.
func (c Config) Validate() error {
	if c.FrameLength <= 0 {
		return ErrInvalidFrameLength
	}
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.RingCapacity <= 0 || c.RingCapacity%c.FrameLength != 0 {
		return ErrInvalidRingCapacity
	}
	if c.JitterThreshold < 0 || c.FrameLength+c.JitterThreshold > c.RingCapacity {
		return ErrInvalidJitterThreshold
	}
	if c.LivenessWindow <= 0 {
		return ErrInvalidLivenessWindow
	}
	if c.MaxPeers <= 0 {
		return ErrInvalidMaxPeers
	}
	return nil
}

// FrameInterval returns the mix cadence derived from the frame geometry:
// FrameLength / SampleRate seconds per cycle.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameLength) * time.Second / time.Duration(c.SampleRate)
}
