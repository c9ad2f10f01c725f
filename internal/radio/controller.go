// Package radio implements the Bluetooth radio power controller: a small
// state machine that sequences power, enable and reset lines with mandatory
// settle delays and remembers across system suspend whether the radio must
// come back on at resume.
package radio

import (
	"log/slog"

	"github.com/micro-nova/periphd/internal/clock"
	"github.com/micro-nova/periphd/internal/hardware"
)

// State is the logical radio state.
type State int

const (
	Off State = iota
	On
	// OnPendingSuspend: logically on, physically forced off for the
	// suspend window.
	OnPendingSuspend
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	case OnPendingSuspend:
		return "on-pending-suspend"
	default:
		return "unknown"
	}
}

// Controller sequences the radio's power. It is not safe for concurrent
// use; callers serialize (see Driver).
type Controller struct {
	cfg    Config
	lines  hardware.Lines
	leds   hardware.Indicator
	clk    clock.Clock
	status hardware.StatusReader // nil disables the firmware wait

	up   []Step
	down []Step

	state    State
	onChange func(State)
}

// NewController builds a controller in state Off. status may be nil.
func NewController(cfg Config, lines hardware.Lines, leds hardware.Indicator, clk clock.Clock, status hardware.StatusReader) *Controller {
	return &Controller{
		cfg:    cfg,
		lines:  lines,
		leds:   leds,
		clk:    clk,
		status: status,
		up:     PowerUpSequence(cfg),
		down:   PowerDownSequence(cfg),
		state:  Off,
	}
}

// OnChange registers fn to be called after every state change.
func (c *Controller) OnChange(fn func(State)) { c.onChange = fn }

// State returns the current logical state.
func (c *Controller) State() State { return c.state }

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	slog.Debug("radio: state change", "radio", c.cfg.Name, "from", c.state, "to", s)
	c.state = s
	if c.onChange != nil {
		c.onChange(s)
	}
}

// SetBlocked powers the radio off (blocked) or on (unblocked). Hardware
// calls are fire-and-forget, so it always returns nil.
//
// Blocking while OnPendingSuspend leaves the state at OnPendingSuspend, so a
// block issued inside the suspend window is undone by the next resume.
func (c *Controller) SetBlocked(blocked bool) error {
	if !blocked {
		c.run(c.up)
		if c.cfg.FirmwareWait.Enabled && c.status != nil {
			c.waitFirmware()
		}
		c.setState(On)
		slog.Info("radio: powered on", "radio", c.cfg.Name)
		return nil
	}
	c.run(c.down)
	if c.state != OnPendingSuspend {
		c.setState(Off)
	}
	slog.Info("radio: powered off", "radio", c.cfg.Name, "state", c.state)
	return nil
}

// EnterSuspend forces an enabled radio off for the suspend window.
// It is a no-op unless the radio is On.
func (c *Controller) EnterSuspend() {
	if c.state != On {
		return
	}
	c.setState(OnPendingSuspend)
	_ = c.SetBlocked(true)
}

// ExitResume restores a radio that EnterSuspend turned off.
// It is a no-op unless the radio is OnPendingSuspend.
func (c *Controller) ExitResume() {
	if c.state != OnPendingSuspend {
		return
	}
	_ = c.SetBlocked(false)
}

// ForceOff runs the power-off sequence and sets Off regardless of the
// current state. Hardware state at boot is not trusted.
func (c *Controller) ForceOff() {
	c.run(c.down)
	c.setState(Off)
}

func (c *Controller) run(steps []Step) {
	for _, s := range steps {
		switch s.Target {
		case TargetBit:
			c.lines.SetExpanderBit(s.Bit, s.On)
		case TargetLine:
			c.lines.SetLine(s.Line, hardware.Level(s.On))
		case TargetLED:
			if s.On {
				c.leds.EnableLED(s.LED, s.Pattern)
			} else {
				c.leds.DisableLED(s.LED, s.Pattern)
			}
		}
		if s.Delay > 0 {
			c.clk.Sleep(s.Delay)
		}
	}
}

// waitFirmware polls the status line until ready or the try budget runs
// out. Returns whether the firmware reported ready.
func (c *Controller) waitFirmware() bool {
	fw := c.cfg.FirmwareWait
	for try := 1; try <= fw.Tries; try++ {
		c.clk.Sleep(fw.Interval)
		if c.status.Ready() {
			slog.Debug("radio: firmware ready", "radio", c.cfg.Name, "tries", try)
			return true
		}
	}
	slog.Warn("radio: firmware timeout", "radio", c.cfg.Name, "tries", fw.Tries, "interval", fw.Interval)
	return false
}
