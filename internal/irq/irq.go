// Package irq models edge-triggered interrupt lines in userspace. An edge
// source delivers hardware edges from its own goroutine (the interrupt
// context); the Line dispatches them to a handler unless masked.
//
// Edges that arrive while a line is masked are coalesced into a single
// pending flag and replayed once when the line is unmasked.
package irq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Trigger selects which edges fire the line.
type Trigger int

const (
	TriggerRising Trigger = 1 << iota
	TriggerFalling

	TriggerBoth = TriggerRising | TriggerFalling
)

func (t Trigger) String() string {
	switch t {
	case TriggerRising:
		return "rising"
	case TriggerFalling:
		return "falling"
	case TriggerBoth:
		return "both"
	default:
		return "none"
	}
}

// Result is a handler's verdict on an edge.
type Result int

const (
	None Result = iota
	Handled
)

// Handler runs in interrupt context. It must not block or sleep.
type Handler func() Result

// EdgeSource delivers hardware edges.
type EdgeSource interface {
	// Watch starts delivering edges matching trigger by calling fire from a
	// single goroutine until ctx is done or Close is called. fire never
	// blocks.
	Watch(ctx context.Context, trigger Trigger, fire func()) error

	// Close stops delivery and releases the underlying line.
	Close() error
}

var (
	ErrNoSource  = errors.New("irq: no edge source")
	ErrNoHandler = errors.New("irq: no handler")
)

// Stats counts edge deliveries on a line.
type Stats struct {
	Fired     uint64 // edges delivered by the source or replayed
	Handled   uint64 // handler invocations
	Coalesced uint64 // edges absorbed while masked
	Replayed  uint64 // pending edges replayed on unmask
}

// Line is a requested interrupt line.
type Line struct {
	name    string
	src     EdgeSource
	handler Handler
	cancel  context.CancelFunc

	hmu     sync.Mutex // serializes handler invocations
	masked  atomic.Bool
	pending atomic.Bool
	freed   atomic.Bool

	fired     atomic.Uint64
	handled   atomic.Uint64
	coalesced atomic.Uint64
	replayed  atomic.Uint64
}

// Request binds handler to the edges of src. The line starts unmasked.
func Request(name string, src EdgeSource, trigger Trigger, handler Handler) (*Line, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if handler == nil {
		return nil, ErrNoHandler
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Line{
		name:    name,
		src:     src,
		handler: handler,
		cancel:  cancel,
	}
	if err := src.Watch(ctx, trigger, l.dispatch); err != nil {
		cancel()
		return nil, fmt.Errorf("irq: request %s: %w", name, err)
	}
	slog.Debug("irq: line requested", "name", name, "trigger", trigger)
	return l, nil
}

func (l *Line) dispatch() {
	if l.freed.Load() {
		return
	}
	l.fired.Add(1)
	l.hmu.Lock()
	defer l.hmu.Unlock()
	if l.masked.Load() {
		l.pending.Store(true)
		l.coalesced.Add(1)
		return
	}
	if l.handler() == Handled {
		l.handled.Add(1)
	}
}

// Name returns the name given at request time.
func (l *Line) Name() string { return l.name }

// Mask stops handler dispatch. It does not wait for a running handler and
// may be called from one. Unmask must not be called from a handler.
func (l *Line) Mask() { l.masked.Store(true) }

// Unmask re-enables dispatch and replays one coalesced edge, if any. The
// mask is cleared and the pending flag taken under the dispatch lock, so an
// edge coalesced by a concurrent dispatch is never stranded.
func (l *Line) Unmask() {
	l.hmu.Lock()
	l.masked.Store(false)
	replay := l.pending.Swap(false)
	l.hmu.Unlock()
	if replay {
		l.replayed.Add(1)
		l.dispatch()
	}
}

// Masked reports whether the line is currently masked.
func (l *Line) Masked() bool { return l.masked.Load() }

// Free stops edge delivery and releases the source. Safe to call twice.
func (l *Line) Free() error {
	if l.freed.Swap(true) {
		return nil
	}
	l.cancel()
	slog.Debug("irq: line freed", "name", l.name)
	return l.src.Close()
}

// Stats returns a snapshot of the line's counters.
func (l *Line) Stats() Stats {
	return Stats{
		Fired:     l.fired.Load(),
		Handled:   l.handled.Load(),
		Coalesced: l.coalesced.Load(),
		Replayed:  l.replayed.Load(),
	}
}
