package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Heartbeat announces the mixer to a directory service on a fixed cadence.
//
// The announcement itself is a callback the core does not own: the caller
// supplies whatever send it wants performed once per interval, and the
// heartbeat only schedules it for process lifetime. Failures are logged and
// the cadence continues.
type Heartbeat struct {
	interval time.Duration
	announce func() error

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// DirectoryAnnouncement builds the mixer's presence payload: service tag
// "M" plus its position in the directory's coordinate space.
func DirectoryAnnouncement(x, y, z float32) []byte {
	return []byte(fmt.Sprintf("M %f,%f,%f", x, y, z))
}

// NewHeartbeat creates a heartbeat invoking announce every interval.
func NewHeartbeat(interval time.Duration, announce func() error) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		announce: announce,
	}
}

// Start launches the announcement loop. Announces once immediately so the
// directory learns about the mixer without waiting a full interval.
func (h *Heartbeat) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go h.run()
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	h.beat()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *Heartbeat) beat() {
	if err := h.announce(); err != nil {
		logrus.WithField("error", err.Error()).Warn("Directory heartbeat failed")
	}
}

// Stop halts the announcement loop.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	cancel := h.cancel
	h.mu.Unlock()

	cancel()
	h.wg.Wait()
}
