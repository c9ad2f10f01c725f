//go:build linux

package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	i2cRdwrIOCTL = 0x0707 // I2C_RDWR ioctl: combined write+read with repeated start
	i2cMsgRD     = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec = 500
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// Expander drives the CPLD output expander over I2C. The CPLD's output
// registers are write-mostly, so a shadow copy is kept and each bit change
// rewrites the whole register.
type Expander struct {
	mu      sync.Mutex
	dev     string
	addr    uint16
	fd      int
	shadow  [ExpanderRegs]byte
	limiter *rate.Limiter
}

// NewExpander creates an expander driver for the given I2C bus device and
// 7-bit address.
func NewExpander(dev string, addr uint16, opsPerSec int) *Expander {
	if opsPerSec <= 0 {
		opsPerSec = maxOpsPerSec
	}
	return &Expander{
		dev:     dev,
		addr:    addr,
		fd:      -1,
		limiter: rate.NewLimiter(rate.Limit(opsPerSec), 4),
	}
}

// Init opens the bus and seeds the shadow registers from the device.
func (e *Expander) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	fd, err := unix.Open(e.dev, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("expander: open %s: %w", e.dev, err)
	}
	for i := range e.shadow {
		v, err := readByteData(fd, e.addr, byte(i))
		if err != nil {
			unix.Close(fd)
			return fmt.Errorf("expander: no CPLD at 0x%02x on %s: %w", e.addr, e.dev, err)
		}
		e.shadow[i] = v
	}
	e.fd = fd
	slog.Info("expander: CPLD detected", "dev", e.dev, "addr", fmt.Sprintf("0x%02x", e.addr))
	return nil
}

func (e *Expander) SetExpanderBit(bit ExpanderBit, on bool) {
	if !bit.Valid() {
		slog.Warn("expander: invalid bit", "bit", bit)
		return
	}
	_ = e.limiter.Wait(context.Background())
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd < 0 {
		slog.Warn("expander: driver not initialized", "bit", bit)
		return
	}
	reg := bit.Reg()
	val := ApplyBit(e.shadow[reg], bit, on)
	if err := writeByteData(e.fd, e.addr, byte(reg), val); err != nil {
		slog.Warn("expander: write failed", "bit", bit, "on", on, "err", err)
		return
	}
	e.shadow[reg] = val
}

// Close releases the I2C file descriptor.
func (e *Expander) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fd >= 0 {
		unix.Close(e.fd)
		e.fd = -1
	}
}

// readByteData performs a combined write+read with REPEATED START (SMBus read_byte_data).
func readByteData(fd int, addr uint16, reg byte) (byte, error) {
	wbuf := [1]byte{reg}
	rbuf := [1]byte{}
	msgs := [2]i2cMsg{
		{addr: addr, flags: 0, length: 1, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
		{addr: addr, flags: i2cMsgRD, length: 1, buf: uintptr(unsafe.Pointer(&rbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 2}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return 0, fmt.Errorf("i2c: I2C_RDWR read: %w", errno)
	}
	return rbuf[0], nil
}

// writeByteData performs a combined write of [reg, val] using I2C_RDWR.
func writeByteData(fd int, addr uint16, reg, val byte) error {
	wbuf := [2]byte{reg, val}
	msgs := [1]i2cMsg{
		{addr: addr, flags: 0, length: 2, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
	}
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: 1}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return fmt.Errorf("i2c: I2C_RDWR write 0x%02x reg=0x%02x: %w", addr, reg, errno)
	}
	return nil
}
