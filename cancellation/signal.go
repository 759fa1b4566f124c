// Package cancellation provides the cooperative cancellation signal
// threaded through every awaited step of a generation run. Each run owns
// its own signal; there is no ambient global.
package cancellation

import (
	"sync"
	"time"

	"github.com/glyphic-ai/genflow/providers"
)

// Signal is a mutable cancel flag with optional on-cancel callbacks.
// All methods are safe for concurrent use and safe on a nil receiver,
// so callers that do not need cancellation can pass nil.
type Signal struct {
	mu        sync.Mutex
	cancelled bool
	callbacks []func()
	timer     *time.Timer
}

// NewSignal creates a signal in the not-cancelled state.
func NewSignal() *Signal {
	return &Signal{}
}

// WithTimeout creates a signal that cancels itself after d.
func WithTimeout(d time.Duration) *Signal {
	s := NewSignal()
	s.timer = time.AfterFunc(d, s.Cancel)
	return s
}

// Cancel marks the signal cancelled and runs registered callbacks.
// Idempotent: the second and later calls are no-ops.
func (s *Signal) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	if s.timer != nil {
		s.timer.Stop()
	}
	callbacks := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Cancelled reports whether Cancel has been called.
func (s *Signal) Cancelled() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// OnCancel registers a callback to run on cancellation. If the signal is
// already cancelled the callback runs immediately.
func (s *Signal) OnCancel(fn func()) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		fn()
		return
	}
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

// Check returns a Timeout-classified error when the signal is already
// cancelled, nil otherwise. Callers invoke it immediately before and
// after every suspension point.
func (s *Signal) Check() error {
	if !s.Cancelled() {
		return nil
	}
	return providers.NewPluginError(providers.KindTimeout, "operation cancelled", true, nil)
}
