// Package hardware provides the hardware abstraction layer for the handheld's
// peripheral lines. It defines the line, expander, indicator and status
// interfaces used by the radio and audio drivers, the real Linux backends,
// and a recording mock.
package hardware

// Level is the logical level of a discrete line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// LineID names a discrete GPIO line, e.g. "GPIO17" or a board alias.
type LineID string

// ExpanderBit is an index into the CPLD expander's output bits.
// Bit n lives in register n/8, position n%8.
type ExpanderBit int

// LEDID identifies an indicator LED.
type LEDID int

const (
	LEDLeft LEDID = iota
	LEDRight
)

// LEDPattern is a bitmask of LED colors plus the blink flag.
type LEDPattern uint8

const (
	LEDColorA LEDPattern = 1 << 0
	LEDColorB LEDPattern = 1 << 1
	LEDBlink  LEDPattern = 1 << 2
)

// Lines drives discrete GPIO lines and expander bits.
// Operations are synchronous and fire-and-forget: once a line identifier is
// valid they are assumed to succeed. Real backends log faults instead of
// returning them.
type Lines interface {
	SetLine(id LineID, level Level)
	GetLine(id LineID) Level
	SetExpanderBit(bit ExpanderBit, on bool)
}

// LineClaimer reserves a line for exclusive use by one driver.
type LineClaimer interface {
	// ClaimLine reserves the line. It fails if the line does not exist or is
	// already claimed.
	ClaimLine(id LineID, label string) error

	// ReleaseLine frees a previously claimed line. Releasing an unclaimed line
	// is a no-op.
	ReleaseLine(id LineID)
}

// Indicator controls user-visible LEDs.
type Indicator interface {
	EnableLED(id LEDID, pattern LEDPattern)
	DisableLED(id LEDID, color LEDPattern)
}

// StatusReader reports whether the peripheral's firmware signals ready.
type StatusReader interface {
	Ready() bool
}

// HardwareError is returned when a hardware operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
