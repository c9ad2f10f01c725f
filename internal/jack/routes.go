package jack

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/models"
)

// Router receives headphone presence from the deferred detect task.
type Router interface {
	SetHeadphone(inserted bool)
}

// Routes holds the user's Jack and Speaker functions and the last observed
// headphone presence, and drives the amplifier enable bit.
type Routes struct {
	mu       sync.Mutex
	lines    hardware.Lines
	ampBit   hardware.ExpanderBit
	jackFn   models.Function
	spkFn    models.Function
	inserted bool
	powered  bool
	onChange func()
}

// NewRoutes creates routes with both functions On. The amplifier is not
// driven until SetPowered(true).
func NewRoutes(lines hardware.Lines, ampBit hardware.ExpanderBit) *Routes {
	return &Routes{
		lines:  lines,
		ampBit: ampBit,
		jackFn: models.FunctionOn,
		spkFn:  models.FunctionOn,
	}
}

// OnChange registers fn, called without locks held after every change.
func (r *Routes) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// SetJackFunction switches the headphone output on or off. It reports
// whether the value changed.
func (r *Routes) SetJackFunction(f models.Function) (bool, error) {
	if !f.Valid() {
		return false, fmt.Errorf("jack: invalid jack function %q", f)
	}
	return r.update(func() bool {
		if r.jackFn == f {
			return false
		}
		r.jackFn = f
		return true
	}), nil
}

// SetSpeakerFunction switches the speaker output on or off. It reports
// whether the value changed.
func (r *Routes) SetSpeakerFunction(f models.Function) (bool, error) {
	if !f.Valid() {
		return false, fmt.Errorf("jack: invalid speaker function %q", f)
	}
	return r.update(func() bool {
		if r.spkFn == f {
			return false
		}
		r.spkFn = f
		return true
	}), nil
}

// SetHeadphone implements Router.
func (r *Routes) SetHeadphone(inserted bool) {
	r.update(func() bool {
		if r.inserted == inserted {
			return false
		}
		r.inserted = inserted
		slog.Info("jack: headphone state", "inserted", inserted)
		return true
	})
}

// SetPowered enables or disables amplifier control. Unpowering clears the
// amplifier bit; powering re-applies the current route.
func (r *Routes) SetPowered(on bool) {
	r.mu.Lock()
	r.powered = on
	if on {
		r.applyLocked()
	} else {
		r.lines.SetExpanderBit(r.ampBit, false)
	}
	r.mu.Unlock()
}

// Reapply drives the amplifier from the current route.
func (r *Routes) Reapply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked()
}

func (r *Routes) update(fn func() bool) bool {
	r.mu.Lock()
	changed := fn()
	if changed {
		r.applyLocked()
	}
	cb := r.onChange
	r.mu.Unlock()
	if changed && cb != nil {
		cb()
	}
	return changed
}

func (r *Routes) applyLocked() {
	if !r.powered {
		return
	}
	r.lines.SetExpanderBit(r.ampBit, r.outputLocked() == models.OutputSpeaker)
}

func (r *Routes) outputLocked() models.Output {
	switch {
	case r.inserted && r.jackFn == models.FunctionOn:
		return models.OutputHeadphone
	case !r.inserted && r.spkFn == models.FunctionOn:
		return models.OutputSpeaker
	default:
		return models.OutputNone
	}
}

// Output returns the active output.
func (r *Routes) Output() models.Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outputLocked()
}

// JackFunction returns the headphone switch.
func (r *Routes) JackFunction() models.Function {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jackFn
}

// SpeakerFunction returns the speaker switch.
func (r *Routes) SpeakerFunction() models.Function {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spkFn
}

// Inserted returns the last observed headphone presence.
func (r *Routes) Inserted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserted
}

var _ Router = (*Routes)(nil)
