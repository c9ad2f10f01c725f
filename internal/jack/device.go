package jack

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/irq"
	"github.com/micro-nova/periphd/internal/models"
)

// Publisher receives state-change events.
type Publisher interface {
	Publish(ev models.Event)
}

// Config wires the audio device.
type Config struct {
	Name      string
	Detect    hardware.LineID
	ActiveLow bool
	SoundBit  hardware.ExpanderBit
	AmpBit    hardware.ExpanderBit
}

// DefaultConfig returns the stock wiring.
func DefaultConfig() Config {
	return Config{
		Name:     "hp-detect",
		Detect:   "HP_DET",
		SoundBit: hardware.BitSound,
		AmpBit:   hardware.BitSndAmplifier,
	}
}

// Device is the audio subsystem's lifecycle: codec and amplifier power
// bits, jack detection and output routes.
type Device struct {
	mu     sync.Mutex
	cfg    Config
	lines  hardware.Lines
	pub    Publisher
	routes *Routes
	pipe   *Pipeline
	probed bool
}

// NewDevice creates a detached device. src may be nil (no detection); pub
// may be nil.
func NewDevice(cfg Config, lines hardware.Lines, src irq.EdgeSource, pub Publisher) *Device {
	d := &Device{cfg: cfg, lines: lines, pub: pub}
	d.routes = NewRoutes(lines, cfg.AmpBit)
	d.pipe = NewPipeline(PipelineConfig{Name: cfg.Name, Detect: cfg.Detect, ActiveLow: cfg.ActiveLow}, lines, src, d.routes)
	d.routes.OnChange(d.publish)
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return "audio" }

// Routes returns the output routes.
func (d *Device) Routes() *Routes { return d.routes }

// Pipeline returns the detection pipeline.
func (d *Device) Pipeline() *Pipeline { return d.pipe }

// Probe powers the codec and amplifier and starts detection.
func (d *Device) Probe(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.probed {
		return nil
	}
	d.lines.SetExpanderBit(d.cfg.SoundBit, true)
	d.lines.SetExpanderBit(d.cfg.AmpBit, true)
	d.routes.SetPowered(true)
	if err := d.pipe.Init(ctx); err != nil {
		d.routes.SetPowered(false)
		d.lines.SetExpanderBit(d.cfg.SoundBit, false)
		return err
	}
	d.probed = true
	slog.Info("jack: audio attached", "detection", d.pipe.Available())
	return nil
}

// Remove stops detection and powers the codec and amplifier down.
func (d *Device) Remove(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.probed {
		return nil
	}
	d.pipe.Teardown()
	d.routes.SetPowered(false)
	d.lines.SetExpanderBit(d.cfg.SoundBit, false)
	d.lines.SetExpanderBit(d.cfg.AmpBit, false)
	d.probed = false
	slog.Info("jack: audio detached")
	return nil
}

// Suspend disarms the detect line, waits for pending detect work and
// powers the codec and amplifier down.
func (d *Device) Suspend(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.probed {
		return nil
	}
	d.pipe.Suspend()
	d.routes.SetPowered(false)
	d.lines.SetExpanderBit(d.cfg.SoundBit, false)
	d.lines.SetExpanderBit(d.cfg.AmpBit, false)
	return nil
}

// Resume powers the codec, re-applies the routes and schedules a detect
// run, which re-reads the jack and re-arms the line.
func (d *Device) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.probed {
		return nil
	}
	d.lines.SetExpanderBit(d.cfg.SoundBit, true)
	d.routes.SetPowered(true)
	d.pipe.Resume()
	return nil
}

// SetJackFunction switches the headphone output.
func (d *Device) SetJackFunction(f models.Function) (bool, error) {
	return d.routes.SetJackFunction(f)
}

// SetSpeakerFunction switches the speaker output.
func (d *Device) SetSpeakerFunction(f models.Function) (bool, error) {
	return d.routes.SetSpeakerFunction(f)
}

// Status returns a snapshot for the API.
func (d *Device) Status() models.JackStatus {
	return models.JackStatus{
		Available:       d.pipe.Available(),
		Armed:           d.pipe.Armed(),
		Inserted:        d.routes.Inserted(),
		JackFunction:    d.routes.JackFunction(),
		SpeakerFunction: d.routes.SpeakerFunction(),
		Output:          d.routes.Output(),
	}
}

func (d *Device) publish() {
	if d.pub == nil {
		return
	}
	st := d.Status()
	d.pub.Publish(models.Event{Kind: models.EventJack, Time: time.Now(), Jack: &st})
}
