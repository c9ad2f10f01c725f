// Package hciuart keeps the HCI UART line discipline attached while the
// Bluetooth radio is powered. The radio driver only sequences power; the
// host stack still needs a userspace helper (hciattach or btattach) bound
// to the UART for as long as the chip is on.
package hciuart

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/micro-nova/periphd/internal/models"
)

// Config selects the radio to follow and the helper command.
type Config struct {
	Radio   string
	Command []string
	Policy  Policy
}

// DefaultCommand attaches a BCM UART chip at the stock baud rate.
func DefaultCommand(uart string, baud int) []string {
	return []string{"hciattach", "-n", uart, "any", strconv.Itoa(baud), "flow"}
}

// Attacher runs the helper exactly while the named radio is on.
type Attacher struct {
	cfg Config
	sup *Supervisor

	mu  sync.Mutex
	ctx context.Context
}

// New creates an idle attacher.
func New(cfg Config) (*Attacher, error) {
	if cfg.Radio == "" {
		return nil, errors.New("hciuart: radio name required")
	}
	if len(cfg.Command) == 0 {
		return nil, errors.New("hciuart: empty command")
	}
	a := &Attacher{cfg: cfg, ctx: context.Background()}
	a.sup = NewSupervisor(cfg.Radio, cfg.Policy, func() *exec.Cmd {
		return exec.Command(cfg.Command[0], cfg.Command[1:]...)
	})
	return a, nil
}

// Sync starts or stops the helper for a radio state.
func (a *Attacher) Sync(st models.RadioStatus) {
	if st.Name != a.cfg.Radio {
		return
	}
	a.mu.Lock()
	ctx := a.ctx
	a.mu.Unlock()

	if st.Attached && st.State == "on" {
		if !a.sup.Running() {
			slog.Info("hciuart: radio on, attaching", "radio", st.Name)
		}
		a.sup.Start(ctx)
		return
	}
	if a.sup.Running() {
		slog.Info("hciuart: radio not on, detaching", "radio", st.Name, "state", st.State)
	}
	a.sup.Stop()
}

// Run follows radio events until ctx is done or events is closed, then
// stops the helper.
func (a *Attacher) Run(ctx context.Context, events <-chan models.Event) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	defer a.sup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == models.EventRadio && ev.Radio != nil {
				a.Sync(*ev.Radio)
			}
		}
	}
}

// Running reports whether the helper is supervised.
func (a *Attacher) Running() bool { return a.sup.Running() }

// Pid returns the helper's process ID, or 0.
func (a *Attacher) Pid() int { return a.sup.Pid() }
