//go:build !linux

package main

import (
	"context"

	"github.com/micro-nova/periphd/internal/platform"
)

func runSleepMonitor(ctx context.Context, plat *platform.Platform) {}
