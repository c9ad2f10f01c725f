package radio

import (
	"time"

	"github.com/micro-nova/periphd/internal/hardware"
)

// Config describes one radio's wiring and timing.
type Config struct {
	Name       string
	PowerBit   hardware.ExpanderBit
	RadioBit   hardware.ExpanderBit
	ResetLine  hardware.LineID
	LED        hardware.LEDID
	LEDPattern hardware.LEDPattern
	ResetHold  time.Duration
	Settle     time.Duration

	// FirmwareWait polls the status line after power-up until the radio
	// firmware reports ready. A timeout is logged and otherwise ignored.
	FirmwareWait FirmwareWait
}

// FirmwareWait bounds the firmware-ready poll.
type FirmwareWait struct {
	Enabled  bool
	Tries    int
	Interval time.Duration
}

// DefaultConfig returns the stock Bluetooth wiring.
func DefaultConfig() Config {
	return Config{
		Name:       "loox720-bt",
		PowerBit:   hardware.BitBluetoothPower,
		RadioBit:   hardware.BitBluetoothRadio,
		ResetLine:  "BT_RESET_N",
		LED:        hardware.LEDLeft,
		LEDPattern: hardware.LEDColorA | hardware.LEDBlink,
		ResetHold:  MinResetHold,
		Settle:     MinSettle,
		FirmwareWait: FirmwareWait{
			Enabled:  false,
			Tries:    50,
			Interval: 10 * time.Millisecond,
		},
	}
}
