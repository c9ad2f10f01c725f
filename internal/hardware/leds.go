package hardware

import "log/slog"

// LEDBits maps one indicator LED onto its expander bits.
type LEDBits struct {
	ColorA ExpanderBit
	ColorB ExpanderBit
	Blink  ExpanderBit
}

// DefaultLEDBits returns the stock left/right LED wiring.
func DefaultLEDBits() map[LEDID]LEDBits {
	return map[LEDID]LEDBits{
		LEDLeft:  {ColorA: BitLEDLeftA, ColorB: BitLEDLeftB, Blink: BitLEDLeftBlink},
		LEDRight: {ColorA: BitLEDRightA, ColorB: BitLEDRightB, Blink: BitLEDRightBlink},
	}
}

// ExpanderLEDs implements Indicator on top of expander bits.
type ExpanderLEDs struct {
	lines Lines
	bits  map[LEDID]LEDBits
}

// NewExpanderLEDs creates an indicator driving the given LED bit map.
func NewExpanderLEDs(lines Lines, bits map[LEDID]LEDBits) *ExpanderLEDs {
	return &ExpanderLEDs{lines: lines, bits: bits}
}

// EnableLED lights the colors in pattern; LEDBlink selects blinking.
func (e *ExpanderLEDs) EnableLED(id LEDID, pattern LEDPattern) {
	b, ok := e.bits[id]
	if !ok {
		slog.Warn("leds: unknown LED", "id", id)
		return
	}
	if pattern&LEDColorA != 0 {
		e.lines.SetExpanderBit(b.ColorA, true)
	}
	if pattern&LEDColorB != 0 {
		e.lines.SetExpanderBit(b.ColorB, true)
	}
	e.lines.SetExpanderBit(b.Blink, pattern&LEDBlink != 0)
}

// DisableLED turns off the colors in color. Blink is left to the next enable.
func (e *ExpanderLEDs) DisableLED(id LEDID, color LEDPattern) {
	b, ok := e.bits[id]
	if !ok {
		slog.Warn("leds: unknown LED", "id", id)
		return
	}
	if color&LEDColorA != 0 {
		e.lines.SetExpanderBit(b.ColorA, false)
	}
	if color&LEDColorB != 0 {
		e.lines.SetExpanderBit(b.ColorB, false)
	}
}

var _ Indicator = (*ExpanderLEDs)(nil)
