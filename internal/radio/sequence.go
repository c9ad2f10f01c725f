package radio

import (
	"fmt"
	"time"

	"github.com/micro-nova/periphd/internal/hardware"
)

// MinResetHold is the radio module's minimum reset pulse width. Configured
// values below it are raised to it.
const MinResetHold = time.Millisecond

// MinSettle is the minimum settle time after power-down.
const MinSettle = time.Millisecond

// Target selects what a Step drives.
type Target int

const (
	TargetBit Target = iota
	TargetLine
	TargetLED
)

// Step is one entry of a power sequence: drive a target, then wait Delay.
type Step struct {
	Target  Target
	Bit     hardware.ExpanderBit
	Line    hardware.LineID
	LED     hardware.LEDID
	Pattern hardware.LEDPattern
	On      bool
	Delay   time.Duration
}

func (s Step) String() string {
	var what string
	switch s.Target {
	case TargetBit:
		what = fmt.Sprintf("bit %d=%t", s.Bit, s.On)
	case TargetLine:
		what = fmt.Sprintf("line %s=%s", s.Line, hardware.Level(s.On))
	case TargetLED:
		what = fmt.Sprintf("led %d on=%t 0x%02x", s.LED, s.On, s.Pattern)
	}
	if s.Delay > 0 {
		what += fmt.Sprintf(" +%v", s.Delay)
	}
	return what
}

// PowerUpSequence returns the ordered power-on steps: supply rail, radio
// enable, indicator, then a reset pulse (low, hold, high).
func PowerUpSequence(cfg Config) []Step {
	return []Step{
		{Target: TargetBit, Bit: cfg.PowerBit, On: true},
		{Target: TargetBit, Bit: cfg.RadioBit, On: true},
		{Target: TargetLED, LED: cfg.LED, Pattern: cfg.LEDPattern, On: true},
		{Target: TargetLine, Line: cfg.ResetLine, On: false, Delay: max(cfg.ResetHold, MinResetHold)},
		{Target: TargetLine, Line: cfg.ResetLine, On: true},
	}
}

// PowerDownSequence returns the ordered power-off steps: radio enable,
// supply rail, indicator, then the settle delay.
func PowerDownSequence(cfg Config) []Step {
	return []Step{
		{Target: TargetBit, Bit: cfg.RadioBit, On: false},
		{Target: TargetBit, Bit: cfg.PowerBit, On: false},
		{Target: TargetLED, LED: cfg.LED, Pattern: cfg.LEDPattern &^ hardware.LEDBlink, On: false, Delay: max(cfg.Settle, MinSettle)},
	}
}
