// Package sizer tracks the viewer's container width and notifies on
// significant changes, coalescing sub-pixel layout jitter.
package sizer

import (
	"sync"
	"time"

	"github.com/summitapp/viewerd/internal/obs"
)

// Sizer debounces container width updates and suppresses changes
// within ThresholdPx of the last emitted width.
type Sizer struct {
	thresholdPx int
	debounce    time.Duration
	emit        func(width int)
	hook        obs.Hook

	mu          sync.Mutex
	lastEmitted int
	pending     int
	timer       *time.Timer
	stopped     bool
	inflight    sync.WaitGroup // emits in progress outside the lock
}

// New creates a sizer that calls emit with coalesced width changes.
func New(thresholdPx int, debounce time.Duration, hook obs.Hook, emit func(width int)) *Sizer {
	if hook == nil {
		hook = obs.NopHook{}
	}
	return &Sizer{
		thresholdPx: thresholdPx,
		debounce:    debounce,
		emit:        emit,
		hook:        hook,
	}
}

// Start emits the initial width synchronously. The first render must
// not wait for a resize event.
func (s *Sizer) Start(initialWidth int) {
	s.mu.Lock()
	s.lastEmitted = initialWidth
	s.mu.Unlock()
	s.hook.Emit(obs.EventResizeEmitted, obs.Int("width", initialWidth))
	s.emit(initialWidth)
}

// Update reports a new measured container width. Widths within the
// threshold of the last emitted value are dropped; others are
// debounced, so a burst collapses into one emit of the final width.
func (s *Sizer) Update(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if abs(width-s.lastEmitted) <= s.thresholdPx {
		// A pending larger change may still be in flight; a jitter
		// back inside the threshold cancels it.
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.hook.Emit(obs.EventResizeCoalesced, obs.Int("width", width))
		return
	}

	s.pending = width
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.debounce <= 0 {
		s.fireLocked()
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			return
		}
		s.timer = nil
		s.fireLocked()
	})
}

// fireLocked emits the pending width. Callers hold s.mu; the emit
// itself runs without the lock to let subscribers call back in. The
// inflight counter lets Stop wait for an emit already past the
// stopped check.
func (s *Sizer) fireLocked() {
	width := s.pending
	s.lastEmitted = width
	s.inflight.Add(1)
	s.mu.Unlock()
	s.hook.Emit(obs.EventResizeEmitted, obs.Int("width", width))
	s.emit(width)
	s.inflight.Done()
	s.mu.Lock()
}

// Width returns the last emitted width.
func (s *Sizer) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEmitted
}

// Stop cancels any pending notification and waits for an in-flight
// emit to finish delivering. After Stop returns no emit runs.
func (s *Sizer) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.inflight.Wait()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
