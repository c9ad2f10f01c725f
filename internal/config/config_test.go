package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/micro-nova/periphd/internal/config"
	"github.com/micro-nova/periphd/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Radio.Name != "loox720-bt" || cfg.Jack.DetectLine != "HP_DET" {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periphd.yaml")
	writeFile(t, path, `
radio:
  reset_hold: 5ms
  firmware:
    wait: true
    tries: 20
    interval: 25ms
jack:
  irq_backend: cdev
  active_low: true
expander:
  addr: 0x21
api:
  addr: ":9000"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Radio.ResetHold != 5*time.Millisecond {
		t.Errorf("reset_hold = %v, want 5ms", cfg.Radio.ResetHold)
	}
	if !cfg.Radio.Firmware.Wait || cfg.Radio.Firmware.Tries != 20 || cfg.Radio.Firmware.Interval != 25*time.Millisecond {
		t.Errorf("firmware = %+v", cfg.Radio.Firmware)
	}
	if cfg.Radio.Firmware.UART != "/dev/ttyS1" {
		t.Errorf("unset fields should keep defaults, uart = %q", cfg.Radio.Firmware.UART)
	}
	if cfg.Jack.IRQBackend != "cdev" || !cfg.Jack.ActiveLow {
		t.Errorf("jack = %+v", cfg.Jack)
	}
	if cfg.Expander.Addr != 0x21 {
		t.Errorf("addr = %#x, want 0x21", cfg.Expander.Addr)
	}
	if cfg.API.Addr != ":9000" {
		t.Errorf("api addr = %q", cfg.API.Addr)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PERIPHD_API_ADDR", ":7000")
	t.Setenv("PERIPHD_LOG_LEVEL", "debug")
	t.Setenv("PERIPHD_JACK_ENABLED", "false")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Addr != ":7000" || cfg.Log.Level != "debug" || cfg.Jack.Enabled {
		t.Errorf("env not applied: api=%q level=%q jack=%v", cfg.API.Addr, cfg.Log.Level, cfg.Jack.Enabled)
	}
}

func TestLoadEnvBadBool(t *testing.T) {
	t.Setenv("PERIPHD_RADIO_ENABLED", "sometimes")
	if _, err := config.Load(""); err == nil || !strings.Contains(err.Error(), "PERIPHD_RADIO_ENABLED") {
		t.Errorf("err = %v, want PERIPHD_RADIO_ENABLED parse error", err)
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "radio: [not, a, map")
	if _, err := config.Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad backend", func(c *config.Config) { c.Jack.IRQBackend = "poll" }, "irq_backend"},
		{"bit range", func(c *config.Config) { c.Radio.PowerBit = 40 }, "radio.power_bit"},
		{"same bits", func(c *config.Config) { c.Radio.RadioBit = c.Radio.PowerBit }, "must differ"},
		{"no reset line", func(c *config.Config) { c.Radio.ResetLine = "" }, "reset_line"},
		{"firmware tries", func(c *config.Config) { c.Radio.Firmware.Wait = true; c.Radio.Firmware.Tries = 0 }, "tries"},
		{"attach without uart", func(c *config.Config) { c.Radio.Attach.Enabled = true; c.Radio.Firmware.UART = "" }, "radio.attach"},
		{"backup hour", func(c *config.Config) { c.Backup.Hour = 24 }, "backup.hour"},
		{"log level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"rate", func(c *config.Config) { c.Expander.OpsPerSec = 0 }, "ops_per_sec"},
		{"disabled radio skips checks", func(c *config.Config) { c.Radio.Enabled = false; c.Radio.ResetLine = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := config.ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periphd.yaml")
	cfg := config.Default()
	cfg.Radio.Settle = 3 * time.Millisecond
	cfg.Jack.IRQBackend = "cdev"
	if err := config.Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Radio.Settle != 3*time.Millisecond || got.Jack.IRQBackend != "cdev" {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "periphd.yaml")
	writeFile(t, path, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() { done <- config.Watch(ctx, path, func(c *config.Config) { got <- c }) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "log:\n  level: debug\n")

	select {
	case c := <-got:
		if c.Log.Level != "debug" {
			t.Errorf("reloaded level = %q, want debug", c.Log.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}

// --- state stores ---

func TestJSONStoreLoadMissingReturnsDefault(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.JackFunction != models.FunctionOn || st.SpeakerFunction != models.FunctionOn {
		t.Errorf("got %+v, want defaults", st)
	}
}

func TestJSONStoreSaveFlushLoad(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	st := models.DefaultSavedState()
	st.Radios["loox720-bt"] = false
	st.SpeakerFunction = models.FunctionOff

	if err := store.Save(&st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if blocked, ok := got.Radios["loox720-bt"]; !ok || blocked {
		t.Errorf("radios = %v, want loox720-bt unblocked", got.Radios)
	}
	if got.SpeakerFunction != models.FunctionOff {
		t.Errorf("speaker = %q, want Off", got.SpeakerFunction)
	}
	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("state dir has %d entries, want only state.json", len(entries))
	}
}

func TestJSONStoreDebounce(t *testing.T) {
	store := config.NewJSONStore(t.TempDir())
	st := models.DefaultSavedState()
	for _, f := range []models.Function{models.FunctionOff, models.FunctionOn, models.FunctionOff} {
		st.JackFunction = f
		if err := store.Save(&st); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatal("write should be debounced")
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := os.Stat(store.Path()); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debounced write never happened")
		}
		time.Sleep(20 * time.Millisecond)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.JackFunction != models.FunctionOff {
		t.Errorf("jack = %q, want last saved Off", got.JackFunction)
	}
}

func TestJSONStoreCorruptAndInvalid(t *testing.T) {
	dir := t.TempDir()
	store := config.NewJSONStore(dir)

	writeFile(t, store.Path(), "{not json")
	st, err := store.Load()
	if err != nil || st.JackFunction != models.FunctionOn {
		t.Errorf("corrupt file: %+v, %v; want defaults", st, err)
	}
	if _, err := os.Stat(store.Path() + ".corrupt"); err != nil {
		t.Errorf("corrupt file not moved aside: %v", err)
	}

	writeFile(t, store.Path(), `{"jack_function":"Loud","speaker_function":"Off"}`)
	st, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.JackFunction != models.FunctionOn || st.SpeakerFunction != models.FunctionOff || st.Radios == nil {
		t.Errorf("migrated = %+v", st)
	}
	if st.Version != models.StateVersion {
		t.Errorf("version = %d, want %d", st.Version, models.StateVersion)
	}
}

func TestMemStoreCopies(t *testing.T) {
	store := config.NewMemStore()
	st := models.DefaultSavedState()
	st.Radios["bt"] = true
	_ = store.Save(&st)
	st.Radios["bt"] = false

	got, _ := store.Load()
	if !got.Radios["bt"] {
		t.Error("store should hold a copy")
	}
	if store.Saves() != 1 {
		t.Errorf("saves = %d, want 1", store.Saves())
	}
}
