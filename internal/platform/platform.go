// Package platform drives device lifecycles: probe at startup, remove at
// shutdown, and suspend/resume around system sleep.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/periphd/internal/models"
)

// Device is a driver managed by the platform.
type Device interface {
	Name() string
	Probe(ctx context.Context) error
	Remove(ctx context.Context) error
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Publisher receives system events.
type Publisher interface {
	Publish(ev models.Event)
}

// Platform owns an ordered set of devices. All lifecycle calls are
// serialized.
type Platform struct {
	mu        sync.Mutex
	devs      []Device
	probed    []Device
	suspended bool
	pub       Publisher
}

// New creates a platform for devs, probed in the given order.
func New(devs ...Device) *Platform {
	return &Platform{devs: devs}
}

// SetPublisher sets the system event sink.
func (p *Platform) SetPublisher(pub Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pub = pub
}

// Start probes every device in order. A device that fails to probe is
// logged and skipped; the others still attach. The failures are returned
// joined.
func (p *Platform) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, d := range p.devs {
		if p.isProbed(d) {
			continue
		}
		if err := d.Probe(ctx); err != nil {
			slog.Error("platform: probe failed", "device", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		p.probed = append(p.probed, d)
		slog.Info("platform: device probed", "device", d.Name())
	}
	return errors.Join(errs...)
}

func (p *Platform) isProbed(d Device) bool {
	for _, x := range p.probed {
		if x == d {
			return true
		}
	}
	return false
}

// Stop removes probed devices in reverse order.
func (p *Platform) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for i := len(p.probed) - 1; i >= 0; i-- {
		d := p.probed[i]
		if err := d.Remove(ctx); err != nil {
			slog.Warn("platform: remove failed", "device", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	p.probed = nil
	p.suspended = false
	return errors.Join(errs...)
}

// Suspend suspends probed devices in reverse probe order. A second call
// before Resume is a no-op.
func (p *Platform) Suspend(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suspended {
		return nil
	}
	start := time.Now()
	var errs []error
	for i := len(p.probed) - 1; i >= 0; i-- {
		d := p.probed[i]
		if err := d.Suspend(ctx); err != nil {
			slog.Warn("platform: suspend failed", "device", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	p.suspended = true
	slog.Info("platform: suspended", "devices", len(p.probed), "took", time.Since(start))
	p.publish()
	return errors.Join(errs...)
}

// Resume resumes probed devices in probe order. It is a no-op unless
// suspended.
func (p *Platform) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.suspended {
		return nil
	}
	start := time.Now()
	var errs []error
	for _, d := range p.probed {
		if err := d.Resume(ctx); err != nil {
			slog.Warn("platform: resume failed", "device", d.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	p.suspended = false
	slog.Info("platform: resumed", "devices", len(p.probed), "took", time.Since(start))
	p.publish()
	return errors.Join(errs...)
}

// Suspended reports whether the platform is between Suspend and Resume.
func (p *Platform) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// Probed returns the names of attached devices in probe order.
func (p *Platform) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.probed))
	for i, d := range p.probed {
		names[i] = d.Name()
	}
	return names
}

func (p *Platform) publish() {
	if p.pub == nil {
		return
	}
	s := p.suspended
	p.pub.Publish(models.Event{Kind: models.EventSystem, Time: time.Now(), Suspended: &s})
}
