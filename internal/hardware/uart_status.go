package hardware

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// UARTStatus reports firmware readiness from the radio UART's CTS line.
// Radio modules that drive RTS low once their firmware has booted show up
// here as CTS asserted.
type UARTStatus struct {
	port serial.Port
	dev  string
}

// OpenUARTStatus opens the radio UART without driving any data.
func OpenUARTStatus(dev string, baud int) (*UARTStatus, error) {
	port, err := serial.Open(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dev, err)
	}
	return &UARTStatus{port: port, dev: dev}, nil
}

// Ready returns true when CTS is asserted.
func (u *UARTStatus) Ready() bool {
	bits, err := u.port.GetModemStatusBits()
	if err != nil {
		slog.Debug("uart: modem status read failed", "dev", u.dev, "err", err)
		return false
	}
	return bits.CTS
}

// Close releases the port.
func (u *UARTStatus) Close() error {
	return u.port.Close()
}

var _ StatusReader = (*UARTStatus)(nil)
