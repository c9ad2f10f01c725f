//go:build linux

package main

import (
	"log/slog"

	"github.com/micro-nova/periphd/internal/clock"
	"github.com/micro-nova/periphd/internal/config"
	"github.com/micro-nova/periphd/internal/hardware"
)

func openHardware(cfg *config.Config) (*hardwareSet, error) {
	board, err := hardware.NewBoard(cfg.Expander.Bus, cfg.Expander.Addr, cfg.Expander.OpsPerSec)
	if err != nil {
		return nil, err
	}
	hw := &hardwareSet{
		Lines:   board,
		Claimer: board,
		LEDs:    hardware.NewExpanderLEDs(board, hardware.DefaultLEDBits()),
		Clock:   clock.Real{},
	}
	hw.closers = append(hw.closers, board.Close)

	if fw := cfg.Radio.Firmware; cfg.Radio.Enabled && fw.Wait {
		st, err := hardware.OpenUARTStatus(fw.UART, fw.Baud)
		if err != nil {
			slog.Warn("firmware wait disabled: cannot open uart", "dev", fw.UART, "err", err)
		} else {
			hw.Status = st
			hw.closers = append(hw.closers, func() { _ = st.Close() })
		}
	}

	if cfg.Jack.Enabled {
		switch cfg.Jack.IRQBackend {
		case "cdev":
			hw.Edge = hardware.NewCdevEdge(cfg.Jack.Chip, cfg.Jack.DetectLine, "periphd")
		default:
			pin, err := board.Pin(hardware.LineID(cfg.Jack.DetectLine))
			if err != nil {
				slog.Warn("jack detection unavailable", "line", cfg.Jack.DetectLine, "err", err)
			} else {
				hw.Edge = hardware.NewPeriphEdge(pin)
			}
		}
	}
	return hw, nil
}
