package hardware

import (
	"context"
	"sync"

	"github.com/micro-nova/periphd/internal/irq"
)

// MockEdge is an irq.EdgeSource driven by tests. Fire delivers an edge
// synchronously on the caller's goroutine, which plays the interrupt
// context.
type MockEdge struct {
	mu       sync.Mutex
	fire     func()
	trigger  irq.Trigger
	watchErr error
	closed   bool
}

// NewMockEdge creates an idle mock edge source.
func NewMockEdge() *MockEdge { return &MockEdge{} }

// SetWatchErr makes the next Watch call fail with err.
func (m *MockEdge) SetWatchErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchErr = err
}

func (m *MockEdge) Watch(ctx context.Context, trigger irq.Trigger, fire func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchErr != nil {
		return m.watchErr
	}
	m.fire = fire
	m.trigger = trigger
	m.closed = false
	return nil
}

func (m *MockEdge) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fire = nil
	m.closed = true
	return nil
}

// Fire delivers one edge. It is a no-op when nothing is watching.
func (m *MockEdge) Fire() {
	m.mu.Lock()
	fire := m.fire
	m.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// Trigger returns the trigger passed to the last Watch.
func (m *MockEdge) Trigger() irq.Trigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trigger
}

// Closed reports whether Close has been called since the last Watch.
func (m *MockEdge) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ irq.EdgeSource = (*MockEdge)(nil)
