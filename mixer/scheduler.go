package mixer

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler state errors.
var (
	// ErrSchedulerRunning indicates Run was called while already running.
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning indicates Stop was called before Run.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
)

// Scheduler drives a cycle function on a fixed cadence.
//
// Deadlines are absolute: cycle k is due at startTime + k*interval. After
// each cycle the scheduler sleeps out the remaining time; if the cycle
// overran, the overrun is reported and the next cycle begins immediately.
// Missed time is never caught up, so an isolated overrun leaves every later
// deadline untouched and drift stays bounded.
type Scheduler struct {
	interval time.Duration
	cycle    func()
	clock    Clock
	metrics  *Metrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler invoking cycle every interval. Metrics
// may be nil, in which case overruns are only logged.
func NewScheduler(interval time.Duration, cycle func(), metrics *Metrics) *Scheduler {
	return &Scheduler{
		interval: interval,
		cycle:    cycle,
		clock:    SystemClock{},
		metrics:  metrics,
	}
}

// SetClock injects a deterministic clock for tests. Must be called before
// Run.
func (s *Scheduler) SetClock(clock Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Run executes the cadence loop until Stop is called. It blocks; callers
// run it on its own goroutine. The stop flag is checked once per cycle
// boundary, so shutdown latency is at most one interval plus one cycle.
func (s *Scheduler) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	clock := s.clock
	s.mu.Unlock()

	defer close(s.done)

	logrus.WithField("interval", s.interval).Info("Mix scheduler started")

	start := clock.Now()
	for cycleIndex := 1; ; cycleIndex++ {
		select {
		case <-s.stop:
			logrus.WithField("cycles", cycleIndex-1).Info("Mix scheduler stopped")
			return nil
		default:
		}

		s.cycle()

		deadline := start.Add(time.Duration(cycleIndex) * s.interval)
		remaining := deadline.Sub(clock.Now())
		if remaining > 0 {
			clock.Sleep(remaining)
			continue
		}
		if s.metrics != nil {
			s.metrics.addOverrun()
		}
		logrus.WithFields(logrus.Fields{
			"cycle":   cycleIndex,
			"overrun": -remaining,
		}).Warn("Mix cycle overran its interval")
	}
}

// Stop requests a cooperative shutdown and waits for the loop to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	return nil
}
