//go:build linux

package main

import (
	"context"
	"log/slog"

	"github.com/micro-nova/periphd/internal/platform"
)

// runSleepMonitor suspends and resumes the platform around system sleep.
func runSleepMonitor(ctx context.Context, plat *platform.Platform) {
	mon, err := platform.NewSleepMonitor(plat)
	if err != nil {
		slog.Warn("sleep monitor disabled", "err", err)
		return
	}
	if err := mon.Run(ctx); err != nil {
		slog.Warn("sleep monitor stopped", "err", err)
	}
}
