package hardware

import (
	"fmt"
	"sync"
	"time"
)

// OpKind classifies a recorded mock operation.
type OpKind int

const (
	OpSetLine OpKind = iota
	OpSetBit
	OpEnableLED
	OpDisableLED
	OpDelay
)

// Op is one recorded hardware side effect.
type Op struct {
	Kind    OpKind
	Line    LineID
	Level   Level
	Bit     ExpanderBit
	On      bool
	LED     LEDID
	Pattern LEDPattern
	Delay   time.Duration
}

func (o Op) String() string {
	switch o.Kind {
	case OpSetLine:
		return fmt.Sprintf("line %s=%s", o.Line, o.Level)
	case OpSetBit:
		return fmt.Sprintf("bit %d=%t", o.Bit, o.On)
	case OpEnableLED:
		return fmt.Sprintf("led %d on 0x%02x", o.LED, o.Pattern)
	case OpDisableLED:
		return fmt.Sprintf("led %d off 0x%02x", o.LED, o.Pattern)
	case OpDelay:
		return fmt.Sprintf("delay %v", o.Delay)
	default:
		return "unknown"
	}
}

// Mock is a thread-safe in-memory hardware backend for tests and --mock runs.
// It implements Lines, LineClaimer, Indicator, StatusReader and clock.Clock,
// recording every side effect (including delays) in one ordered log.
type Mock struct {
	mu        sync.Mutex
	lines     map[LineID]Level
	known     map[LineID]bool // nil: every line exists
	claims    map[LineID]string
	failClaim map[LineID]bool
	regs      [ExpanderRegs]byte
	leds      map[LEDID]LEDPattern
	ops       []Op

	readyAfter int // Ready() turns true on this poll; <0 never
	polls      int
}

// NewMock creates a mock where every line exists and firmware is ready on
// the first poll.
func NewMock() *Mock {
	return &Mock{
		lines:      make(map[LineID]Level),
		claims:     make(map[LineID]string),
		failClaim:  make(map[LineID]bool),
		leds:       make(map[LEDID]LEDPattern),
		readyAfter: 1,
	}
}

// NewMockWithLines creates a mock exposing only the given lines.
func NewMockWithLines(ids ...LineID) *Mock {
	m := NewMock()
	m.known = make(map[LineID]bool, len(ids))
	for _, id := range ids {
		m.known[id] = true
	}
	return m
}

// SetFailClaim makes ClaimLine fail for id.
func (m *Mock) SetFailClaim(id LineID, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failClaim[id] = fail
}

// SetReadyAfter makes Ready return true from the n-th poll on; n < 0 never.
func (m *Mock) SetReadyAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyAfter = n
	m.polls = 0
}

// SetInput drives an input line level without recording an op, as an
// external signal would.
func (m *Mock) SetInput(id LineID, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[id] = level
}

func (m *Mock) SetLine(id LineID, level Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[id] = level
	m.ops = append(m.ops, Op{Kind: OpSetLine, Line: id, Level: level})
}

func (m *Mock) GetLine(id LineID) Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines[id]
}

func (m *Mock) SetExpanderBit(bit ExpanderBit, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !bit.Valid() {
		return
	}
	m.regs[bit.Reg()] = ApplyBit(m.regs[bit.Reg()], bit, on)
	m.ops = append(m.ops, Op{Kind: OpSetBit, Bit: bit, On: on})
}

func (m *Mock) ClaimLine(id LineID, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known != nil && !m.known[id] {
		return ErrHardware(fmt.Sprintf("mock: no such line %s", id))
	}
	if m.failClaim[id] {
		return ErrHardware(fmt.Sprintf("mock: claim failure configured for %s", id))
	}
	if owner, ok := m.claims[id]; ok {
		return ErrHardware(fmt.Sprintf("mock: line %s busy (%s)", id, owner))
	}
	m.claims[id] = label
	return nil
}

func (m *Mock) ReleaseLine(id LineID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, id)
}

func (m *Mock) EnableLED(id LEDID, pattern LEDPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leds[id] = pattern
	m.ops = append(m.ops, Op{Kind: OpEnableLED, LED: id, Pattern: pattern})
}

func (m *Mock) DisableLED(id LEDID, color LEDPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leds[id] &^= color
	if m.leds[id]&(LEDColorA|LEDColorB) == 0 {
		m.leds[id] = 0
	}
	m.ops = append(m.ops, Op{Kind: OpDisableLED, LED: id, Pattern: color})
}

func (m *Mock) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	return m.readyAfter >= 0 && m.polls >= m.readyAfter
}

// Sleep records a delay without blocking.
func (m *Mock) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, Op{Kind: OpDelay, Delay: d})
}

// Ops returns a copy of the recorded operation log.
func (m *Mock) Ops() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Op, len(m.ops))
	copy(out, m.ops)
	return out
}

// ResetOps clears the operation log.
func (m *Mock) ResetOps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}

// Bit returns the current value of an expander bit.
func (m *Mock) Bit(bit ExpanderBit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !bit.Valid() {
		return false
	}
	return m.regs[bit.Reg()]&bit.Mask() != 0
}

// LED returns the current pattern of an LED.
func (m *Mock) LED(id LEDID) LEDPattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leds[id]
}

// Claimed reports whether a line is currently claimed.
func (m *Mock) Claimed(id LineID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[id]
	return ok
}

// Polls returns how many times Ready has been called.
func (m *Mock) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

var (
	_ Lines        = (*Mock)(nil)
	_ LineClaimer  = (*Mock)(nil)
	_ Indicator    = (*Mock)(nil)
	_ StatusReader = (*Mock)(nil)
)
