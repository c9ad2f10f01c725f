//go:build linux

package hardware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/micro-nova/periphd/internal/irq"
)

// edgePollTimeout bounds each WaitForEdge so the watcher notices shutdown.
const edgePollTimeout = 100 * time.Millisecond

// PeriphEdge delivers edges of a periph.io input pin.
type PeriphEdge struct {
	pin  gpio.PinIO
	done chan struct{}
	once sync.Once
}

// NewPeriphEdge wraps a periph pin as an edge source.
func NewPeriphEdge(pin gpio.PinIO) *PeriphEdge {
	return &PeriphEdge{pin: pin, done: make(chan struct{})}
}

func (e *PeriphEdge) Watch(ctx context.Context, trigger irq.Trigger, fire func()) error {
	edge := gpio.BothEdges
	switch trigger {
	case irq.TriggerRising:
		edge = gpio.RisingEdge
	case irq.TriggerFalling:
		edge = gpio.FallingEdge
	}
	if err := e.pin.In(gpio.PullNoChange, edge); err != nil {
		return fmt.Errorf("gpio: edge setup on %s: %w", e.pin.Name(), err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.done:
				return
			default:
			}
			if e.pin.WaitForEdge(edgePollTimeout) {
				fire()
			}
		}
	}()
	return nil
}

// Level reads the watched pin.
func (e *PeriphEdge) Level() (Level, error) {
	return Level(e.pin.Read()), nil
}

func (e *PeriphEdge) Close() error {
	e.once.Do(func() { close(e.done) })
	return e.pin.Halt()
}

var _ irq.EdgeSource = (*PeriphEdge)(nil)
