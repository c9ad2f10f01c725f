package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/periphd/internal/clock"
	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/models"
	"github.com/micro-nova/periphd/internal/rfkill"
)

// ErrAttach wraps every resource-acquisition failure during Probe.
var ErrAttach = errors.New("radio: attach failed")

// Publisher receives state-change events.
type Publisher interface {
	Publish(ev models.Event)
}

// Hardware bundles the collaborators a Driver drives.
type Hardware struct {
	Lines   hardware.Lines
	Claimer hardware.LineClaimer
	LEDs    hardware.Indicator
	Clock   clock.Clock
	Status  hardware.StatusReader // optional
}

// Driver attaches a radio Controller to the platform lifecycle and to the
// rfkill registry. All entry points are serialized.
type Driver struct {
	mu       sync.Mutex
	cfg      Config
	hw       Hardware
	reg      *rfkill.Registry
	pub      Publisher
	ctrl     *Controller
	sw       *rfkill.Switch
	blocked  bool
	attached bool
}

// NewDriver creates a detached driver. pub may be nil.
func NewDriver(cfg Config, hw Hardware, reg *rfkill.Registry, pub Publisher) *Driver {
	if hw.Clock == nil {
		hw.Clock = clock.Real{}
	}
	return &Driver{cfg: cfg, hw: hw, reg: reg, pub: pub, blocked: true}
}

// Name returns the radio name.
func (d *Driver) Name() string { return d.cfg.Name }

// Probe claims the reset line, registers the rfkill switch reporting the
// radio as blocked, and forces the radio off. On failure everything already
// acquired is released in reverse order.
func (d *Driver) Probe(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attached {
		return nil
	}

	if err := d.hw.Claimer.ClaimLine(d.cfg.ResetLine, "BT_RESET_N"); err != nil {
		slog.Error("radio: failed to claim reset line", "radio", d.cfg.Name, "line", d.cfg.ResetLine, "err", err)
		return fmt.Errorf("%w: claim %s: %w", ErrAttach, d.cfg.ResetLine, err)
	}

	sw, err := rfkill.Alloc(d.cfg.Name, rfkill.TypeBluetooth, d)
	if err != nil {
		d.hw.Claimer.ReleaseLine(d.cfg.ResetLine)
		slog.Error("radio: failed to allocate rfkill", "radio", d.cfg.Name, "err", err)
		return fmt.Errorf("%w: alloc rfkill: %w", ErrAttach, err)
	}
	sw.SetHWState(true)

	if err := d.reg.Register(sw); err != nil {
		_ = sw.Destroy()
		d.hw.Claimer.ReleaseLine(d.cfg.ResetLine)
		slog.Error("radio: failed to register rfkill", "radio", d.cfg.Name, "err", err)
		return fmt.Errorf("%w: register rfkill: %w", ErrAttach, err)
	}

	d.sw = sw
	d.ctrl = NewController(d.cfg, d.hw.Lines, d.hw.LEDs, d.hw.Clock, d.hw.Status)
	d.blocked = true
	d.attached = true

	// Disabled by default.
	d.ctrl.ForceOff()
	d.publish()
	slog.Info("radio: attached", "radio", d.cfg.Name)
	return nil
}

// Remove unregisters the switch and releases the reset line.
func (d *Driver) Remove(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return nil
	}
	d.reg.Unregister(d.sw)
	_ = d.sw.Destroy()
	d.hw.Claimer.ReleaseLine(d.cfg.ResetLine)
	d.sw = nil
	d.attached = false
	d.publish()
	slog.Info("radio: detached", "radio", d.cfg.Name)
	return nil
}

// Suspend powers an enabled radio down for the suspend window.
func (d *Driver) Suspend(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attached && d.ctrl.State() == On {
		d.ctrl.EnterSuspend()
		d.publish()
	}
	return nil
}

// Resume restores a radio that Suspend powered down.
func (d *Driver) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attached && d.ctrl.State() == OnPendingSuspend {
		d.ctrl.ExitResume()
		d.publish()
	}
	return nil
}

// SetBlock implements rfkill.Ops.
func (d *Driver) SetBlock(blocked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return fmt.Errorf("radio: %s not attached", d.cfg.Name)
	}
	d.blocked = blocked
	err := d.ctrl.SetBlocked(blocked)
	d.publish()
	return err
}

// State returns the controller state; Off when detached.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.attached {
		return Off
	}
	return d.ctrl.State()
}

// Blocked reports the last requested block state; true until the first
// unblock.
func (d *Driver) Blocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blocked
}

// Status returns a snapshot for the API.
func (d *Driver) Status() models.RadioStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status()
}

func (d *Driver) status() models.RadioStatus {
	st := models.RadioStatus{
		Name:     d.cfg.Name,
		State:    Off.String(),
		Blocked:  d.blocked,
		Attached: d.attached,
	}
	if d.attached {
		st.State = d.ctrl.State().String()
	}
	return st
}

func (d *Driver) publish() {
	if d.pub == nil {
		return
	}
	st := d.status()
	d.pub.Publish(models.Event{Kind: models.EventRadio, Time: time.Now(), Radio: &st})
}

var _ rfkill.Ops = (*Driver)(nil)
