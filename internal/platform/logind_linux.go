package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const (
	logindDest      = "org.freedesktop.login1"
	logindPath      = dbus.ObjectPath("/org/freedesktop/login1")
	logindManager   = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

// Sleeper is the part of Platform the monitor drives.
type Sleeper interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// SleepMonitor follows logind's PrepareForSleep signal. It holds a delay
// inhibitor so devices are suspended before the system sleeps, and
// re-takes it after resume.
type SleepMonitor struct {
	target Sleeper
	conn   *dbus.Conn

	mu  sync.Mutex
	fd  int
	who string
}

// NewSleepMonitor connects to the system bus.
func NewSleepMonitor(target Sleeper) (*SleepMonitor, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("platform: connect system bus: %w", err)
	}
	return &SleepMonitor{target: target, conn: conn, fd: -1, who: "periphd"}, nil
}

// Run blocks until ctx is done, suspending and resuming the target around
// system sleep.
func (m *SleepMonitor) Run(ctx context.Context) error {
	defer m.conn.Close()

	if err := m.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindManager),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		return fmt.Errorf("platform: add match: %w", err)
	}

	signals := make(chan *dbus.Signal, 4)
	m.conn.Signal(signals)
	defer m.conn.RemoveSignal(signals)

	if err := m.inhibit(); err != nil {
		slog.Warn("platform: unable to take sleep inhibitor", "err", err)
	}
	defer m.release()

	slog.Info("platform: sleep monitor started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if sig.Name != logindManager+"."+prepareForSleep || len(sig.Body) < 1 {
				continue
			}
			start, _ := sig.Body[0].(bool)
			m.handle(ctx, start)
		}
	}
}

func (m *SleepMonitor) handle(ctx context.Context, start bool) {
	if start {
		slog.Info("platform: system going to sleep")
		if err := m.target.Suspend(ctx); err != nil {
			slog.Warn("platform: suspend", "err", err)
		}
		m.release()
		return
	}
	slog.Info("platform: system woke up")
	if err := m.target.Resume(ctx); err != nil {
		slog.Warn("platform: resume", "err", err)
	}
	if err := m.inhibit(); err != nil {
		slog.Warn("platform: unable to re-take sleep inhibitor", "err", err)
	}
}

func (m *SleepMonitor) inhibit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fd >= 0 {
		return nil
	}
	obj := m.conn.Object(logindDest, logindPath)
	call := obj.Call(logindManager+".Inhibit", 0, "sleep", m.who, "Power down peripherals", "delay")
	if call.Err != nil {
		return call.Err
	}
	var fd dbus.UnixFD
	if err := call.Store(&fd); err != nil {
		return err
	}
	m.fd = int(fd)
	slog.Debug("platform: sleep inhibitor taken", "fd", m.fd)
	return nil
}

func (m *SleepMonitor) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fd < 0 {
		return
	}
	if err := unix.Close(m.fd); err != nil {
		slog.Debug("platform: close inhibitor", "err", err)
	}
	m.fd = -1
}
