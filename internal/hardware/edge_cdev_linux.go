//go:build linux

package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/micro-nova/periphd/internal/irq"
)

// CdevEdge delivers edges from the GPIO character device. The kernel
// timestamps and queues edges, so none are lost between WaitForEdge polls.
type CdevEdge struct {
	mu       sync.Mutex
	chipPath string
	name     string
	consumer string
	chip     *gpiocdev.Chip
	line     *gpiocdev.Line
}

// NewCdevEdge creates an edge source for the named line on chipPath
// (e.g. "/dev/gpiochip0").
func NewCdevEdge(chipPath, lineName, consumer string) *CdevEdge {
	return &CdevEdge{chipPath: chipPath, name: lineName, consumer: consumer}
}

func (e *CdevEdge) Watch(ctx context.Context, trigger irq.Trigger, fire func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	chip, err := gpiocdev.NewChip(e.chipPath)
	if err != nil {
		return fmt.Errorf("gpiocdev: open %s: %w", e.chipPath, err)
	}
	offset, err := chip.FindLine(e.name)
	if err != nil {
		_ = chip.Close()
		return fmt.Errorf("gpiocdev: line %q not found on %s: %w", e.name, e.chipPath, err)
	}
	edge := gpiocdev.WithBothEdges
	switch trigger {
	case irq.TriggerRising:
		edge = gpiocdev.WithRisingEdge
	case irq.TriggerFalling:
		edge = gpiocdev.WithFallingEdge
	}
	line, err := chip.RequestLine(offset,
		edge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { fire() }),
		gpiocdev.WithConsumer(e.consumer))
	if err != nil {
		_ = chip.Close()
		return fmt.Errorf("gpiocdev: request %q: %w", e.name, err)
	}
	e.chip = chip
	e.line = line
	go func() {
		<-ctx.Done()
		_ = e.Close()
	}()
	return nil
}

// Level samples the requested line. The chip line name is not a periph.io
// pin name, so the board cannot read this line itself.
func (e *CdevEdge) Level() (Level, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.line == nil {
		return Low, fmt.Errorf("gpiocdev: line %q not requested", e.name)
	}
	v, err := e.line.Value()
	if err != nil {
		return Low, fmt.Errorf("gpiocdev: read %q: %w", e.name, err)
	}
	return Level(v != 0), nil
}

func (e *CdevEdge) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.line != nil {
		err = e.line.Close()
		e.line = nil
	}
	if e.chip != nil {
		_ = e.chip.Close()
		e.chip = nil
	}
	return err
}

var _ irq.EdgeSource = (*CdevEdge)(nil)
