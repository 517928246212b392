package outline

import (
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultDelay is the quiescence interval before a recompute.
const DefaultDelay = 2500 * time.Millisecond

// Poster runs tasks on the interactive context.
type Poster interface {
	Post(task func()) error
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(task func()) error

// Post calls f.
func (f PosterFunc) Post(task func()) error {
	return f(task)
}

// Scheduler coalesces bursts of notifications into one call of onFire,
// made on the interactive context once no notification has arrived for the
// configured delay.
type Scheduler struct {
	poster Poster
	onFire func()
	logger Logger

	mu        sync.Mutex
	debounced func(func())
	gen       uint64
	stopped   bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger that reports firings the poster
// rejected.
func WithSchedulerLogger(l Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler. onFire runs through poster.
func NewScheduler(delay time.Duration, poster Poster, onFire func(), opts ...SchedulerOption) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	s := &Scheduler{
		poster:    poster,
		onFire:    onFire,
		logger:    NopLogger{},
		debounced: debounce.New(delay),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify arms the timer, restarting it if it is already running.
//
// The callback is registered under mu so that the last registered timer
// always carries the latest generation.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.gen++
	gen := s.gen
	s.debounced(func() { s.fire(gen) })
}

// Flush cancels any pending timer and posts onFire now.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.debounced(func() {})
	s.mu.Unlock()

	s.fire(gen)
}

// Stop disarms the timer permanently.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.gen++
	s.debounced(func() {})
	s.mu.Unlock()
}

// Stopped returns true after Stop.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// fire posts onFire for generation gen. A Notify that lands after the timer
// expired but before the posted task runs bumps the generation, so the stale
// firing is dropped and the new timer fires instead.
func (s *Scheduler) fire(gen uint64) {
	err := s.poster.Post(func() {
		s.mu.Lock()
		current := !s.stopped && gen == s.gen
		s.mu.Unlock()
		if current {
			s.onFire()
		}
	})
	if err != nil {
		safeLog(s.logger, fmt.Errorf("post recompute: %w", err), fmt.Sprintf("generation %d", gen))
	}
}
