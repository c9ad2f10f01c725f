package hardware_test

import (
	"testing"
	"time"

	"github.com/micro-nova/periphd/internal/hardware"
)

func TestMockRecordsOpsInOrder(t *testing.T) {
	m := hardware.NewMock()
	m.SetExpanderBit(hardware.BitBluetoothPower, true)
	m.SetLine("GPIO7", hardware.Low)
	m.Sleep(time.Millisecond)
	m.SetLine("GPIO7", hardware.High)

	ops := m.Ops()
	want := []string{"bit 20=true", "line GPIO7=low", "delay 1ms", "line GPIO7=high"}
	if len(ops) != len(want) {
		t.Fatalf("got %d ops, want %d: %v", len(ops), len(want), ops)
	}
	for i, w := range want {
		if got := ops[i].String(); got != w {
			t.Errorf("op[%d] = %q, want %q", i, got, w)
		}
	}
	if !m.Bit(hardware.BitBluetoothPower) {
		t.Error("power bit should be set")
	}
	if m.GetLine("GPIO7") != hardware.High {
		t.Error("GPIO7 should read high")
	}

	m.ResetOps()
	if len(m.Ops()) != 0 {
		t.Error("ResetOps should clear the log")
	}
}

func TestMockSetInputIsNotRecorded(t *testing.T) {
	m := hardware.NewMock()
	m.SetInput("HP_DET", hardware.High)
	if len(m.Ops()) != 0 {
		t.Error("external input changes should not appear in the op log")
	}
	if m.GetLine("HP_DET") != hardware.High {
		t.Error("HP_DET should read high")
	}
}

func TestMockClaims(t *testing.T) {
	m := hardware.NewMockWithLines("BT_RESET")

	if err := m.ClaimLine("NOPE", "x"); err == nil {
		t.Error("claiming an unknown line should fail")
	}
	if err := m.ClaimLine("BT_RESET", "bt"); err != nil {
		t.Fatalf("ClaimLine: %v", err)
	}
	if err := m.ClaimLine("BT_RESET", "other"); err == nil {
		t.Error("double claim should fail")
	}
	m.ReleaseLine("BT_RESET")
	if m.Claimed("BT_RESET") {
		t.Error("line should be released")
	}

	m.SetFailClaim("BT_RESET", true)
	err := m.ClaimLine("BT_RESET", "bt")
	if _, ok := err.(hardware.HardwareError); !ok {
		t.Errorf("configured claim failure = %v, want HardwareError", err)
	}
}

func TestMockReadyAfter(t *testing.T) {
	m := hardware.NewMock()
	m.SetReadyAfter(3)
	for i := 1; i <= 2; i++ {
		if m.Ready() {
			t.Fatalf("poll %d: ready too early", i)
		}
	}
	if !m.Ready() {
		t.Error("poll 3 should report ready")
	}

	m.SetReadyAfter(-1)
	for i := 0; i < 10; i++ {
		if m.Ready() {
			t.Fatal("SetReadyAfter(-1) should never report ready")
		}
	}
	if m.Polls() != 10 {
		t.Errorf("Polls = %d, want 10", m.Polls())
	}
}

func TestMockLEDs(t *testing.T) {
	m := hardware.NewMock()
	m.EnableLED(hardware.LEDLeft, hardware.LEDColorA|hardware.LEDBlink)
	if got := m.LED(hardware.LEDLeft); got != hardware.LEDColorA|hardware.LEDBlink {
		t.Errorf("LED = 0x%02x", got)
	}
	m.DisableLED(hardware.LEDLeft, hardware.LEDColorA)
	if got := m.LED(hardware.LEDLeft); got != 0 {
		t.Errorf("LED after disable = 0x%02x, want 0", got)
	}
}
