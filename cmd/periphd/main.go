// Command periphd is the handheld peripheral control daemon: Bluetooth
// radio power, headphone detection and audio amplifier control, exposed
// over HTTP. Run with --mock to use simulated hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/micro-nova/periphd/internal/api"
	"github.com/micro-nova/periphd/internal/auth"
	"github.com/micro-nova/periphd/internal/config"
	"github.com/micro-nova/periphd/internal/controller"
	"github.com/micro-nova/periphd/internal/events"
	"github.com/micro-nova/periphd/internal/hardware"
	"github.com/micro-nova/periphd/internal/hciuart"
	"github.com/micro-nova/periphd/internal/identity"
	"github.com/micro-nova/periphd/internal/jack"
	"github.com/micro-nova/periphd/internal/maintenance"
	"github.com/micro-nova/periphd/internal/models"
	"github.com/micro-nova/periphd/internal/platform"
	"github.com/micro-nova/periphd/internal/radio"
	"github.com/micro-nova/periphd/internal/rfkill"
	"github.com/micro-nova/periphd/internal/zeroconf"
)

func main() {
	var (
		cfgPath     = flag.String("config", "/etc/periphd/periphd.yaml", "board configuration file")
		mock        = flag.Bool("mock", false, "use mock hardware (no GPIO or I2C required)")
		addr        = flag.String("addr", "", "HTTP listen address (overrides config)")
		debug       = flag.Bool("debug", false, "enable debug logging")
		writeConfig = flag.Bool("write-config", false, "write the default configuration to --config and exit")
	)
	flag.Parse()

	if *writeConfig {
		def := config.Default()
		if err := config.Save(*cfgPath, &def); err != nil {
			slog.Error("cannot write config", "path", *cfgPath, "err", err)
			os.Exit(1)
		}
		slog.Info("default config written", "path", *cfgPath)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("cannot load config", "path", *cfgPath, "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.API.Addr = *addr
	}

	var level slog.LevelVar
	closeLog := setupLogging(cfg.Log, &level, *debug)
	defer closeLog.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Hardware
	var hw *hardwareSet
	if *mock {
		slog.Info("using mock hardware")
		hw = mockHardware(cfg)
	} else {
		hw, err = openHardware(cfg)
		if err != nil {
			slog.Error("hardware initialization failed", "err", err)
			os.Exit(1)
		}
	}
	defer hw.Close()

	bus := events.NewBus()
	reg := rfkill.NewRegistry(func(st rfkill.Status) {
		slog.Debug("rfkill: change", "name", st.Name, "blocked", st.Blocked)
	})

	// Subscribe before probe so no radio transition is missed.
	if cfg.Radio.Enabled && cfg.Radio.Attach.Enabled {
		startAttacher(ctx, cfg.Radio, bus)
	}

	// Devices, probed in this order.
	var (
		devs   []platform.Device
		radios []controller.Radio
		audio  *jack.Device
	)
	if cfg.Radio.Enabled {
		rd := radio.NewDriver(radioConfig(cfg.Radio), radio.Hardware{
			Lines:   hw.Lines,
			Claimer: hw.Claimer,
			LEDs:    hw.LEDs,
			Clock:   hw.Clock,
			Status:  hw.Status,
		}, reg, bus)
		devs = append(devs, rd)
		radios = append(radios, rd)
	}
	if cfg.Jack.Enabled {
		audio = jack.NewDevice(jackConfig(cfg.Jack), hw.Lines, hw.Edge, bus)
		devs = append(devs, audio)
	}

	plat := platform.New(devs...)
	plat.SetPublisher(bus)
	if err := plat.Start(ctx); err != nil {
		slog.Warn("some devices failed to attach", "err", err)
	}

	store := config.Store(config.NewJSONStore(cfg.StateDir))
	if *mock {
		store = config.NewMemStore()
	}

	opts := controller.Options{
		Registry: reg,
		Radios:   radios,
		Platform: plat,
		Store:    store,
		Info: models.Info{
			Hostname: identity.GetHostname(),
			Version:  identity.GetVersion(),
			Model:    identity.GetModel(identity.DefaultModelPath),
			Mock:     *mock,
		},
		RestoreRadios: cfg.Radio.RestoreState,
	}
	if audio != nil {
		opts.Audio = audio
	}
	ctrl, err := controller.New(opts)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	ctrl.Restore(ctx)

	authSvc, err := auth.NewService(cfg.StateDir)
	if err != nil {
		slog.Error("auth service initialization failed", "err", err)
		os.Exit(1)
	}
	defer authSvc.Close()
	if path := cfg.API.TokenSecretFile; path != "" {
		tv, err := auth.LoadTokenVerifier(path)
		if err != nil {
			slog.Error("bearer tokens misconfigured", "path", path, "err", err)
			os.Exit(1)
		}
		authSvc.SetTokenVerifier(tv)
		slog.Info("bearer tokens enabled")
	}

	if !*mock {
		go runSleepMonitor(ctx, plat)
	}
	if cfg.Backup.Enabled && !*mock {
		maint := maintenance.New(maintenance.Config{
			StateDir: cfg.StateDir,
			Hour:     cfg.Backup.Hour,
			MaxAge:   time.Duration(cfg.Backup.MaxAgeDays) * 24 * time.Hour,
		})
		go maint.Start(ctx)
	}
	go func() {
		err := config.Watch(ctx, *cfgPath, func(next *config.Config) {
			lvl, _ := config.ParseLevel(next.Log.Level)
			if *debug {
				lvl = slog.LevelDebug
			}
			level.Set(lvl)
			slog.Info("log level updated", "level", lvl)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	if cfg.API.Zeroconf {
		zc := zeroconf.New(opts.Info.Hostname, listenPort(cfg.API.Addr),
			"version="+opts.Info.Version, "model="+opts.Info.Model)
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      api.NewRouter(ctrl, bus, authSvc.Middleware),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("periphd listening", "addr", cfg.API.Addr, "mock", *mock, "config", *cfgPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	if err := plat.Stop(shutCtx); err != nil {
		slog.Warn("device removal error", "err", err)
	}
	if err := ctrl.Flush(); err != nil {
		slog.Warn("failed to flush state", "err", err)
	}
	slog.Info("shutdown complete")
}

// setupLogging installs the default logger. With a log file configured,
// output goes to stderr and a rotated file.
func setupLogging(cfg config.LogConfig, level *slog.LevelVar, debug bool) io.Closer {
	lvl, _ := config.ParseLevel(cfg.Level)
	if debug {
		lvl = slog.LevelDebug
	}
	level.Set(lvl)

	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closer
}

// startAttacher follows radio events on the bus and keeps the HCI UART
// helper running while the radio is on.
func startAttacher(ctx context.Context, rc config.RadioConfig, bus *events.Bus) {
	cmd := rc.Attach.Command
	if len(cmd) == 0 {
		cmd = hciuart.DefaultCommand(rc.Firmware.UART, rc.Firmware.Baud)
	}
	att, err := hciuart.New(hciuart.Config{Radio: rc.Name, Command: cmd, Policy: hciuart.DefaultPolicy()})
	if err != nil {
		slog.Warn("hci attach disabled", "err", err)
		return
	}
	const subID = "hciuart"
	ch := bus.Subscribe(subID, models.EventRadio)
	go func() {
		defer bus.Unsubscribe(subID)
		att.Run(ctx, ch)
	}()
}

func radioConfig(c config.RadioConfig) radio.Config {
	rc := radio.DefaultConfig()
	rc.Name = c.Name
	rc.ResetLine = hardware.LineID(c.ResetLine)
	rc.PowerBit = hardware.ExpanderBit(c.PowerBit)
	rc.RadioBit = hardware.ExpanderBit(c.RadioBit)
	rc.LED = hardware.LEDID(c.LED)
	rc.ResetHold = c.ResetHold
	rc.Settle = c.Settle
	rc.FirmwareWait = radio.FirmwareWait{
		Enabled:  c.Firmware.Wait,
		Tries:    c.Firmware.Tries,
		Interval: c.Firmware.Interval,
	}
	return rc
}

func jackConfig(c config.JackConfig) jack.Config {
	jc := jack.DefaultConfig()
	jc.Detect = hardware.LineID(c.DetectLine)
	jc.ActiveLow = c.ActiveLow
	jc.SoundBit = hardware.ExpanderBit(c.SoundBit)
	jc.AmpBit = hardware.ExpanderBit(c.AmpBit)
	return jc
}

// listenPort extracts the port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 80
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return 80
	}
	return port
}
