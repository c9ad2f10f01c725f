// Package clock provides the blocking delay primitive used by hardware
// sequencing code, with an instant fake for tests.
package clock

import (
	"sync"
	"time"
)

// Clock performs blocking delays. Delays are never cancelled.
type Clock interface {
	Sleep(d time.Duration)
}

// Real sleeps on the wall clock.
type Real struct{}

func (Real) Sleep(d time.Duration) { time.Sleep(d) }

// Fake advances instantly and records every requested delay.
type Fake struct {
	mu      sync.Mutex
	elapsed time.Duration
	sleeps  []time.Duration
}

// NewFake returns a fake clock at zero elapsed time.
func NewFake() *Fake { return &Fake{} }

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed += d
	f.sleeps = append(f.sleeps, d)
}

// Elapsed returns the sum of all delays so far.
func (f *Fake) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

// Sleeps returns a copy of the recorded delays in call order.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Reset clears recorded delays.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed = 0
	f.sleeps = nil
}
