// Package jack implements headphone jack detection and the audio output
// routes it drives. An edge on the detect line is handled in interrupt
// context by masking the line and scheduling a deferred task; the task
// reads the line, updates the routes and re-arms the line.
package jack

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/irq"
	"github.com/micro-nova/periphd/internal/workq"
)

// ErrTornDown is returned by Init after Teardown.
var ErrTornDown = errors.New("jack: pipeline torn down")

// PipelineConfig wires a pipeline to its detect line.
type PipelineConfig struct {
	Name      string
	Detect    hardware.LineID
	ActiveLow bool // inserted reads low
}

// Stats combines the interrupt and deferred-work counters.
type Stats struct {
	IRQ   irq.Stats   `json:"irq"`
	Work  workq.Stats `json:"work"`
	Tasks uint64      `json:"tasks"`
}

// LevelReader is implemented by edge sources that can sample the line they
// hold. The cdev backend owns the detect line exclusively, so the deferred
// task must read the level through it.
type LevelReader interface {
	Level() (hardware.Level, error)
}

// Pipeline hands detect-line edges from interrupt context to a deferred
// task. Between the handler returning and the task completing the line is
// masked, so at most one task is outstanding.
type Pipeline struct {
	cfg    PipelineConfig
	lines  hardware.Lines
	src    irq.EdgeSource
	levels LevelReader
	router Router
	queue  *workq.Queue

	mu   sync.Mutex // serializes Init and Teardown
	torn bool

	// line is read from interrupt context and never under mu.
	line      atomic.Pointer[irq.Line]
	available atomic.Bool

	// armMu orders the deferred re-arm against Suspend. While suspended
	// the deferred task leaves the line masked.
	armMu     sync.Mutex
	suspended bool

	inserted atomic.Bool
	tasks    atomic.Uint64
}

// NewPipeline creates an idle pipeline. src may be nil, in which case Init
// leaves detection unavailable. If src implements LevelReader the deferred
// task reads the detect level from it instead of lines.
func NewPipeline(cfg PipelineConfig, lines hardware.Lines, src irq.EdgeSource, router Router) *Pipeline {
	p := &Pipeline{cfg: cfg, lines: lines, src: src, router: router}
	if lr, ok := src.(LevelReader); ok {
		p.levels = lr
	}
	p.queue = workq.New(cfg.Name, p.deferred)
	return p
}

// Init requests the detect line for both edges, masks it and schedules one
// deferred run to read the initial state; that run arms the line. If the
// line cannot be requested, detection is marked unavailable and Init still
// returns nil: audio works without it.
func (p *Pipeline) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.torn {
		return ErrTornDown
	}
	if p.line.Load() != nil {
		return nil
	}
	p.queue.Start(ctx)

	line, err := irq.Request(p.cfg.Name, p.src, irq.TriggerBoth, p.OnEdgeInterrupt)
	if err != nil {
		slog.Error("jack: unable to request detect irq", "line", p.cfg.Detect, "err", err)
		p.available.Store(false)
		return nil
	}
	line.Mask()
	p.line.Store(line)
	p.available.Store(true)
	p.queue.Schedule()
	slog.Info("jack: detection armed", "line", p.cfg.Detect)
	return nil
}

// OnEdgeInterrupt runs in interrupt context: mask the line and schedule
// the deferred task. It never blocks.
func (p *Pipeline) OnEdgeInterrupt() irq.Result {
	if l := p.line.Load(); l != nil {
		l.Mask()
	}
	p.queue.Schedule()
	return irq.Handled
}

func (p *Pipeline) deferred(ctx context.Context) {
	level := p.readLevel()
	inserted := bool(level) != p.cfg.ActiveLow
	p.inserted.Store(inserted)
	p.tasks.Add(1)
	slog.Debug("jack: detect line read", "line", p.cfg.Detect, "level", level, "inserted", inserted)
	if p.router != nil {
		p.router.SetHeadphone(inserted)
	}

	p.armMu.Lock()
	defer p.armMu.Unlock()
	if p.suspended {
		slog.Debug("jack: suspended, detect line stays masked", "line", p.cfg.Detect)
		return
	}
	if l := p.line.Load(); l != nil {
		l.Unmask()
	}
}

func (p *Pipeline) readLevel() hardware.Level {
	if p.levels != nil {
		level, err := p.levels.Level()
		if err == nil {
			return level
		}
		slog.Warn("jack: edge source level read failed", "line", p.cfg.Detect, "err", err)
	}
	return p.lines.GetLine(p.cfg.Detect)
}

// Schedule queues a deferred run, which reads the line and re-arms it.
func (p *Pipeline) Schedule() bool { return p.queue.Schedule() }

// Flush waits for outstanding deferred work.
func (p *Pipeline) Flush() { p.queue.Flush() }

// Suspend disarms the detect line for a system sleep and waits for
// outstanding work. Deferred runs that finish while suspended leave the
// line masked; only Resume re-arms it.
func (p *Pipeline) Suspend() {
	p.armMu.Lock()
	p.suspended = true
	if l := p.line.Load(); l != nil {
		l.Mask()
	}
	p.armMu.Unlock()
	p.queue.Flush()
}

// Resume lifts the suspend hold and schedules a deferred run, which
// re-reads the jack and re-arms the line. It reports whether a run was
// queued.
func (p *Pipeline) Resume() bool {
	p.armMu.Lock()
	p.suspended = false
	p.armMu.Unlock()
	if !p.available.Load() {
		return false
	}
	return p.queue.Schedule()
}

// Suspended reports whether the pipeline is held for a system sleep.
func (p *Pipeline) Suspended() bool {
	p.armMu.Lock()
	defer p.armMu.Unlock()
	return p.suspended
}

// Teardown waits for outstanding work, frees the line and stops the queue.
// A torn-down pipeline cannot be initialized again.
func (p *Pipeline) Teardown() {
	p.queue.Flush()
	p.mu.Lock()
	line := p.line.Swap(nil)
	p.available.Store(false)
	p.torn = true
	p.mu.Unlock()
	if line != nil {
		if err := line.Free(); err != nil {
			slog.Warn("jack: free detect irq", "err", err)
		}
	}
	p.queue.Stop()
}

// Available reports whether the detect line was acquired.
func (p *Pipeline) Available() bool { return p.available.Load() }

// Armed reports whether edges are currently dispatched.
func (p *Pipeline) Armed() bool {
	l := p.line.Load()
	return l != nil && !l.Masked()
}

// Inserted returns the level observed by the last deferred run.
func (p *Pipeline) Inserted() bool { return p.inserted.Load() }

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	st := Stats{Work: p.queue.Stats(), Tasks: p.tasks.Load()}
	if l := p.line.Load(); l != nil {
		st.IRQ = l.Stats()
	}
	return st
}
