package main

import (
	"github.com/micro-nova/periphd/internal/clock"
	"github.com/micro-nova/periphd/internal/config"
	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/irq"
)

// hardwareSet is the collection of backends the devices are built on.
type hardwareSet struct {
	Lines   hardware.Lines
	Claimer hardware.LineClaimer
	LEDs    hardware.Indicator
	Clock   clock.Clock
	Status  hardware.StatusReader // nil unless firmware wait is enabled
	Edge    irq.EdgeSource        // nil when detection is unavailable

	closers []func()
}

// Close releases backends in reverse order of acquisition.
func (h *hardwareSet) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

func mockHardware(cfg *config.Config) *hardwareSet {
	m := hardware.NewMock()
	hw := &hardwareSet{
		Lines:   m,
		Claimer: m,
		LEDs:    m,
		Clock:   clock.Real{},
		Edge:    hardware.NewMockEdge(),
	}
	if cfg.Radio.Firmware.Wait {
		hw.Status = m
	}
	return hw
}
