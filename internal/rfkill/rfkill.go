// Package rfkill is the radio-control capability: drivers allocate a Switch
// with their block/unblock operation, report the hardware-blocked state and
// register it; user requests reach the driver through the Registry.
package rfkill

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Type is the radio technology behind a switch.
type Type int

const (
	TypeWLAN Type = iota + 1
	TypeBluetooth
	TypeWWAN
)

func (t Type) String() string {
	switch t {
	case TypeWLAN:
		return "wlan"
	case TypeBluetooth:
		return "bluetooth"
	case TypeWWAN:
		return "wwan"
	default:
		return "unknown"
	}
}

// Ops is implemented by the radio driver.
type Ops interface {
	SetBlock(blocked bool) error
}

var (
	ErrInvalid    = errors.New("rfkill: invalid switch")
	ErrExists     = errors.New("rfkill: switch already registered")
	ErrNotFound   = errors.New("rfkill: no such switch")
	ErrDestroyed  = errors.New("rfkill: switch destroyed")
	ErrRegistered = errors.New("rfkill: switch still registered")
)

// Switch is one radio's control handle.
type Switch struct {
	name string
	typ  Type
	ops  Ops

	mu          sync.Mutex
	softBlocked bool // last state applied through the driver
	hwBlocked   bool // reported by the driver
	registered  bool
	destroyed   bool
}

// Status is a snapshot of a switch. Blocked is set when either the soft
// or the hard block is.
type Status struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Blocked     bool   `json:"blocked"`
	SoftBlocked bool   `json:"soft_blocked"`
	HardBlocked bool   `json:"hard_blocked"`
}

// Alloc creates an unregistered switch.
func Alloc(name string, typ Type, ops Ops) (*Switch, error) {
	if name == "" || ops == nil {
		return nil, fmt.Errorf("%w: name=%q ops=%v", ErrInvalid, name, ops != nil)
	}
	return &Switch{name: name, typ: typ, ops: ops}, nil
}

func (s *Switch) Name() string { return s.name }
func (s *Switch) Type() Type   { return s.typ }

// SetHWState records the hardware block without calling the driver. The
// soft state is untouched. It returns the combined blocked state.
func (s *Switch) SetHWState(blocked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hwBlocked = blocked
	return s.hwBlocked || s.softBlocked
}

// Blocked reports whether the switch is soft or hard blocked.
func (s *Switch) Blocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwBlocked || s.softBlocked
}

// SoftBlocked reports the last state applied through the driver.
func (s *Switch) SoftBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.softBlocked
}

// HardBlocked reports the hardware block.
func (s *Switch) HardBlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwBlocked
}

// Status returns a snapshot of the switch.
func (s *Switch) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Name:        s.name,
		Type:        s.typ.String(),
		Blocked:     s.hwBlocked || s.softBlocked,
		SoftBlocked: s.softBlocked,
		HardBlocked: s.hwBlocked,
	}
}

// setBlocked asks the driver to change state and records the soft block on
// success. The driver is called even while hard blocked.
func (s *Switch) setBlocked(blocked bool) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.mu.Unlock()

	// Driver ops may sleep for the power sequence; not called under s.mu.
	if err := s.ops.SetBlock(blocked); err != nil {
		return err
	}

	s.mu.Lock()
	s.softBlocked = blocked
	s.mu.Unlock()
	return nil
}

// Destroy releases an unregistered switch.
func (s *Switch) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registered {
		return ErrRegistered
	}
	s.destroyed = true
	return nil
}

// Registry holds registered switches by name.
type Registry struct {
	mu       sync.RWMutex
	switches map[string]*Switch
	onChange func(Status)
}

// NewRegistry creates an empty registry. onChange, if non-nil, is called
// after every successful state change requested through the registry.
func NewRegistry(onChange func(Status)) *Registry {
	return &Registry{
		switches: make(map[string]*Switch),
		onChange: onChange,
	}
}

// Register makes a switch reachable by name.
func (r *Registry) Register(s *Switch) error {
	if s == nil {
		return ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.switches[s.name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, s.name)
	}
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.registered = true
	s.mu.Unlock()
	r.switches[s.name] = s
	slog.Info("rfkill: switch registered", "name", s.name, "type", s.typ, "blocked", s.Blocked())
	return nil
}

// Unregister removes a switch. Unknown switches are ignored.
func (r *Registry) Unregister(s *Switch) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.switches[s.name]; ok && cur == s {
		delete(r.switches, s.name)
		s.mu.Lock()
		s.registered = false
		s.mu.Unlock()
		slog.Info("rfkill: switch unregistered", "name", s.name)
	}
}

// Get returns a registered switch by name.
func (r *Registry) Get(name string) (*Switch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.switches[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// List returns the status of every registered switch, sorted by name.
func (r *Registry) List() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Status, 0, len(r.switches))
	for _, s := range r.switches {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetBlocked routes a user block/unblock request to the named switch.
func (r *Registry) SetBlocked(name string, blocked bool) (Status, error) {
	s, err := r.Get(name)
	if err != nil {
		return Status{}, err
	}
	if err := s.setBlocked(blocked); err != nil {
		return Status{}, err
	}
	st := s.Status()
	slog.Info("rfkill: state changed", "name", name, "soft_blocked", st.SoftBlocked, "hard_blocked", st.HardBlocked)
	if r.onChange != nil {
		r.onChange(st)
	}
	return st, nil
}

// BlockAll applies blocked to every registered switch of typ and returns
// the first error encountered.
func (r *Registry) BlockAll(typ Type, blocked bool) error {
	var firstErr error
	for _, st := range r.List() {
		s, err := r.Get(st.Name)
		if err != nil || s.typ != typ {
			continue
		}
		if _, err := r.SetBlocked(st.Name, blocked); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
