//go:build !linux

package main

import (
	"errors"

	"github.com/micro-nova/periphd/internal/config"
)

func openHardware(cfg *config.Config) (*hardwareSet, error) {
	return nil, errors.New("real hardware requires linux; use --mock")
}
