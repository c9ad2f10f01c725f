package hciuart

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Policy bounds restarts of a supervised process.
type Policy struct {
	// MaxFastFails gives up after this many consecutive short runs.
	MaxFastFails int
	// FastFail is the run time below which an exit counts as a fast fail.
	FastFail time.Duration
	// Healthy is the run time after which the backoff resets.
	Healthy    time.Duration
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// TermGrace is how long SIGTERM is given before SIGKILL.
	TermGrace time.Duration
}

// DefaultPolicy returns the restart policy used by the daemon.
func DefaultPolicy() Policy {
	return Policy{
		MaxFastFails: 5,
		FastFail:     5 * time.Second,
		Healthy:      30 * time.Second,
		MinBackoff:   500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
		TermGrace:    3 * time.Second,
	}
}

// Supervisor keeps one subprocess running, restarting it with exponential
// backoff. Start and Stop may be called concurrently.
type Supervisor struct {
	name   string
	build  func() *exec.Cmd
	policy Policy

	mu       sync.Mutex
	pid      int
	starts   int
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	gaveUpCh chan struct{}
}

// NewSupervisor creates a stopped supervisor. build is called for every
// (re)start and must return a fresh command.
func NewSupervisor(name string, policy Policy, build func() *exec.Cmd) *Supervisor {
	return &Supervisor{name: name, build: build, policy: policy}
}

// Start launches the process. A running supervisor is left alone.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.doneCh)
}

// Stop terminates the process and waits for supervision to end.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Running reports whether supervision is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pid returns the current process ID, or 0.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Starts returns how many times the process was launched.
func (s *Supervisor) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *Supervisor) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.pid = 0
		// Exits not caused by Stop clear running so Start works again.
		if s.doneCh == doneCh {
			s.running = false
		}
		s.mu.Unlock()
		close(doneCh)
	}()

	backoff := s.policy.MinBackoff
	fails := 0
	for {
		if fails >= s.policy.MaxFastFails {
			slog.Error("hciuart: giving up", "name", s.name, "fails", fails)
			return
		}

		cmd := s.build()
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		began := time.Now()
		if err := cmd.Start(); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				slog.Error("hciuart: helper not found", "name", s.name, "cmd", cmd.Path, "err", err)
				return
			}
			slog.Error("hciuart: start failed", "name", s.name, "err", err)
			fails++
		} else {
			s.mu.Lock()
			s.pid = cmd.Process.Pid
			s.starts++
			s.mu.Unlock()
			slog.Info("hciuart: helper running", "name", s.name, "pid", cmd.Process.Pid)

			exited := make(chan error, 1)
			go func() { exited <- cmd.Wait() }()

			var err error
			select {
			case err = <-exited:
			case <-stopCh:
				s.terminate(cmd.Process.Pid, exited)
				return
			case <-ctx.Done():
				s.terminate(cmd.Process.Pid, exited)
				return
			}

			ran := time.Since(began)
			s.mu.Lock()
			s.pid = 0
			s.mu.Unlock()
			slog.Warn("hciuart: helper exited", "name", s.name, "ran", ran, "err", err)

			switch {
			case ran >= s.policy.Healthy:
				fails = 0
				backoff = s.policy.MinBackoff
			case ran < s.policy.FastFail:
				fails++
			default:
				fails = 0
			}
		}

		select {
		case <-time.After(backoff):
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, s.policy.MaxBackoff)
	}
}

// terminate signals the process group with SIGTERM, then SIGKILL after the
// grace period, and reaps the process.
func (s *Supervisor) terminate(pid int, exited <-chan error) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(s.policy.TermGrace):
		slog.Warn("hciuart: helper ignored SIGTERM", "name", s.name, "pid", pid)
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		<-exited
	}
}
