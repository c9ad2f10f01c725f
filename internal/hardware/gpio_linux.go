//go:build linux

package hardware

import (
	"fmt"
	"log/slog"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var hostInit = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// GPIO drives discrete SoC lines through periph.io. Lines are looked up by
// their periph name (e.g. "GPIO17") and cached.
type GPIO struct {
	mu     sync.Mutex
	pins   map[LineID]gpio.PinIO
	claims map[LineID]string
}

// NewGPIO initializes the periph.io host drivers and returns a line driver.
func NewGPIO() (*GPIO, error) {
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("gpio: host init failed: %w", err)
	}
	return &GPIO{
		pins:   make(map[LineID]gpio.PinIO),
		claims: make(map[LineID]string),
	}, nil
}

func (g *GPIO) pin(id LineID) (gpio.PinIO, error) {
	if p, ok := g.pins[id]; ok {
		return p, nil
	}
	p := gpioreg.ByName(string(id))
	if p == nil {
		return nil, fmt.Errorf("gpio: failed to open %s", id)
	}
	g.pins[id] = p
	return p, nil
}

// Pin returns the periph pin behind a line, for edge sources.
func (g *GPIO) Pin(id LineID) (gpio.PinIO, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pin(id)
}

func (g *GPIO) ClaimLine(id LineID, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if owner, ok := g.claims[id]; ok {
		return fmt.Errorf("gpio: %s already claimed by %s", id, owner)
	}
	if _, err := g.pin(id); err != nil {
		return err
	}
	g.claims[id] = label
	slog.Debug("gpio: line claimed", "line", id, "label", label)
	return nil
}

func (g *GPIO) ReleaseLine(id LineID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, id)
}

func (g *GPIO) SetLine(id LineID, level Level) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(id)
	if err != nil {
		slog.Warn("gpio: set failed", "line", id, "err", err)
		return
	}
	if err := p.Out(gpio.Level(level)); err != nil {
		slog.Warn("gpio: set failed", "line", id, "level", level, "err", err)
	}
}

func (g *GPIO) GetLine(id LineID) Level {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, err := g.pin(id)
	if err != nil {
		slog.Warn("gpio: read failed", "line", id, "err", err)
		return Low
	}
	return Level(p.Read())
}

var _ LineClaimer = (*GPIO)(nil)
