package radio_test

import (
	"testing"
	"time"

	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/radio"
)

var (
	upOps = []string{
		"bit 20=true",
		"bit 21=true",
		"led 0 on 0x05",
		"line BT_RESET_N=low",
		"delay 1ms",
		"line BT_RESET_N=high",
	}
	downOps = []string{
		"bit 21=false",
		"bit 20=false",
		"led 0 off 0x01",
		"delay 1ms",
	}
)

func newController(cfg radio.Config) (*radio.Controller, *hardware.Mock) {
	m := hardware.NewMock()
	return radio.NewController(cfg, m, m, m, m), m
}

func opStrings(m *hardware.Mock) []string {
	ops := m.Ops()
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

func assertOps(t *testing.T, m *hardware.Mock, want []string) {
	t.Helper()
	got := opStrings(m)
	if len(got) != len(want) {
		t.Fatalf("ops = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUnblockRunsPowerUp(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	if err := c.SetBlocked(false); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	assertOps(t, m, upOps)
	if c.State() != radio.On {
		t.Errorf("state = %v, want on", c.State())
	}
	if !m.Bit(hardware.BitBluetoothPower) || !m.Bit(hardware.BitBluetoothRadio) {
		t.Error("power and radio bits should be set")
	}
	if m.GetLine("BT_RESET_N") != hardware.High {
		t.Error("reset line should be released high")
	}
	if m.LED(hardware.LEDLeft) != hardware.LEDColorA|hardware.LEDBlink {
		t.Errorf("led = %#x, want color A blinking", m.LED(hardware.LEDLeft))
	}
}

func TestBlockRunsPowerDown(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	m.ResetOps()

	if err := c.SetBlocked(true); err != nil {
		t.Fatalf("SetBlocked: %v", err)
	}
	assertOps(t, m, downOps)
	if c.State() != radio.Off {
		t.Errorf("state = %v, want off", c.State())
	}
	if m.Bit(hardware.BitBluetoothPower) || m.Bit(hardware.BitBluetoothRadio) {
		t.Error("power and radio bits should be clear")
	}
	if m.LED(hardware.LEDLeft) != 0 {
		t.Errorf("led = %#x, want off", m.LED(hardware.LEDLeft))
	}
}

func TestBlockWhenOffRepeatsSequence(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(true)
	assertOps(t, m, downOps)
	if c.State() != radio.Off {
		t.Errorf("state = %v, want off", c.State())
	}
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	m.ResetOps()

	c.EnterSuspend()
	if c.State() != radio.OnPendingSuspend {
		t.Fatalf("state = %v, want on-pending-suspend", c.State())
	}
	assertOps(t, m, downOps)

	m.ResetOps()
	c.ExitResume()
	if c.State() != radio.On {
		t.Fatalf("state = %v, want on", c.State())
	}
	assertOps(t, m, upOps)
}

func TestSuspendFromOffIsNoop(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	c.EnterSuspend()
	c.ExitResume()
	if c.State() != radio.Off {
		t.Errorf("state = %v, want off", c.State())
	}
	if n := len(m.Ops()); n != 0 {
		t.Errorf("recorded %d ops, want none", n)
	}
}

func TestDoubleSuspendIsIdempotent(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	c.EnterSuspend()
	m.ResetOps()

	c.EnterSuspend()
	if c.State() != radio.OnPendingSuspend {
		t.Errorf("state = %v, want on-pending-suspend", c.State())
	}
	if n := len(m.Ops()); n != 0 {
		t.Errorf("second suspend recorded %d ops", n)
	}
}

func TestResumeWhenOnIsNoop(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	m.ResetOps()
	c.ExitResume()
	if n := len(m.Ops()); n != 0 {
		t.Errorf("resume recorded %d ops", n)
	}
}

func TestBlockDuringSuspendKeepsPending(t *testing.T) {
	c, _ := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	c.EnterSuspend()

	_ = c.SetBlocked(true)
	if c.State() != radio.OnPendingSuspend {
		t.Fatalf("state = %v, want on-pending-suspend", c.State())
	}
	c.ExitResume()
	if c.State() != radio.On {
		t.Errorf("state = %v, want on", c.State())
	}
}

func TestUnblockDuringSuspend(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	c.EnterSuspend()
	m.ResetOps()

	_ = c.SetBlocked(false)
	if c.State() != radio.On {
		t.Fatalf("state = %v, want on", c.State())
	}
	m.ResetOps()
	c.ExitResume()
	if n := len(m.Ops()); n != 0 {
		t.Errorf("resume after unblock recorded %d ops", n)
	}
}

func TestForceOff(t *testing.T) {
	c, m := newController(radio.DefaultConfig())
	_ = c.SetBlocked(false)
	c.EnterSuspend()
	m.ResetOps()

	c.ForceOff()
	assertOps(t, m, downOps)
	if c.State() != radio.Off {
		t.Errorf("state = %v, want off", c.State())
	}
}

func TestStateProperties(t *testing.T) {
	tests := []struct {
		name  string
		steps func(c *radio.Controller)
		state radio.State
		power bool
	}{
		{"initial", func(*radio.Controller) {}, radio.Off, false},
		{"unblocked", func(c *radio.Controller) { _ = c.SetBlocked(false) }, radio.On, true},
		{"suspended", func(c *radio.Controller) { _ = c.SetBlocked(false); c.EnterSuspend() }, radio.OnPendingSuspend, false},
		{"resumed", func(c *radio.Controller) { _ = c.SetBlocked(false); c.EnterSuspend(); c.ExitResume() }, radio.On, true},
		{"reblocked", func(c *radio.Controller) { _ = c.SetBlocked(false); _ = c.SetBlocked(true) }, radio.Off, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newController(radio.DefaultConfig())
			tt.steps(c)
			if c.State() != tt.state {
				t.Errorf("state = %v, want %v", c.State(), tt.state)
			}
			if got := m.Bit(hardware.BitBluetoothPower); got != tt.power {
				t.Errorf("power bit = %v, want %v", got, tt.power)
			}
		})
	}
}

func TestOnChangeFires(t *testing.T) {
	c, _ := newController(radio.DefaultConfig())
	var seen []radio.State
	c.OnChange(func(s radio.State) { seen = append(seen, s) })

	_ = c.SetBlocked(false)
	_ = c.SetBlocked(false)
	c.EnterSuspend()
	c.ExitResume()
	_ = c.SetBlocked(true)

	want := []radio.State{radio.On, radio.OnPendingSuspend, radio.On, radio.Off}
	if len(seen) != len(want) {
		t.Fatalf("changes = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestFirmwareWaitReady(t *testing.T) {
	cfg := radio.DefaultConfig()
	cfg.FirmwareWait.Enabled = true
	c, m := newController(cfg)
	m.SetReadyAfter(3)

	_ = c.SetBlocked(false)
	if m.Polls() != 3 {
		t.Errorf("polls = %d, want 3", m.Polls())
	}
	if c.State() != radio.On {
		t.Errorf("state = %v, want on", c.State())
	}
}

func TestFirmwareWaitTimeout(t *testing.T) {
	cfg := radio.DefaultConfig()
	cfg.FirmwareWait = radio.FirmwareWait{Enabled: true, Tries: 5, Interval: 10 * time.Millisecond}
	c, m := newController(cfg)
	m.SetReadyAfter(-1)

	if err := c.SetBlocked(false); err != nil {
		t.Fatalf("timeout must not fail the unblock: %v", err)
	}
	if m.Polls() != 5 {
		t.Errorf("polls = %d, want 5", m.Polls())
	}
	var waited time.Duration
	for _, op := range m.Ops()[len(upOps):] {
		if op.Kind != hardware.OpDelay {
			t.Fatalf("unexpected op after power-up: %v", op)
		}
		waited += op.Delay
	}
	if waited != 50*time.Millisecond {
		t.Errorf("waited %v, want 50ms", waited)
	}
	if c.State() != radio.On {
		t.Errorf("state = %v, want on", c.State())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[radio.State]string{
		radio.Off:              "off",
		radio.On:               "on",
		radio.OnPendingSuspend: "on-pending-suspend",
		radio.State(42):        "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
