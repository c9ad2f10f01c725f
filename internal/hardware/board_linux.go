//go:build linux

package hardware

// Board combines SoC GPIO lines and the CPLD expander into one Lines
// implementation.
type Board struct {
	*GPIO
	*Expander
}

// NewBoard initializes GPIO and opens the expander.
func NewBoard(i2cDev string, addr uint16, opsPerSec int) (*Board, error) {
	g, err := NewGPIO()
	if err != nil {
		return nil, err
	}
	e := NewExpander(i2cDev, addr, opsPerSec)
	if err := e.Init(); err != nil {
		return nil, err
	}
	return &Board{GPIO: g, Expander: e}, nil
}

var (
	_ Lines       = (*Board)(nil)
	_ LineClaimer = (*Board)(nil)
)
