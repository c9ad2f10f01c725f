// Package config loads the daemon's board configuration from YAML and
// persists user state between runs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the board configuration.
type Config struct {
	Radio    RadioConfig    `yaml:"radio"`
	Jack     JackConfig     `yaml:"jack"`
	Expander ExpanderConfig `yaml:"expander"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
	Backup   BackupConfig   `yaml:"backup"`
	StateDir string         `yaml:"state_dir"`
}

// BackupConfig schedules the daily state directory snapshot.
type BackupConfig struct {
	Enabled    bool `yaml:"enabled"`
	Hour       int  `yaml:"hour"`
	MaxAgeDays int  `yaml:"max_age_days"`
}

// RadioConfig wires the Bluetooth radio.
type RadioConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Name      string        `yaml:"name"`
	ResetLine string        `yaml:"reset_line"`
	PowerBit  int           `yaml:"power_bit"`
	RadioBit  int           `yaml:"radio_bit"`
	LED       int           `yaml:"led"`
	ResetHold time.Duration `yaml:"reset_hold"`
	Settle    time.Duration `yaml:"settle"`
	// RestoreState re-applies the last user block state after probe.
	RestoreState bool           `yaml:"restore_state"`
	Firmware     FirmwareConfig `yaml:"firmware"`
	Attach       AttachConfig   `yaml:"attach"`
}

// AttachConfig runs the HCI UART helper while the radio is on. An empty
// command attaches the firmware UART with hciattach.
type AttachConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command"`
}

// FirmwareConfig enables the post-power-up firmware-ready poll on the UART
// CTS line.
type FirmwareConfig struct {
	Wait     bool          `yaml:"wait"`
	UART     string        `yaml:"uart"`
	Baud     int           `yaml:"baud"`
	Tries    int           `yaml:"tries"`
	Interval time.Duration `yaml:"interval"`
}

// JackConfig wires headphone detection and the audio power bits.
type JackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DetectLine string `yaml:"detect_line"`
	ActiveLow  bool   `yaml:"active_low"`
	// IRQBackend selects the edge source: "periph" or "cdev".
	IRQBackend string `yaml:"irq_backend"`
	Chip       string `yaml:"chip"`
	SoundBit   int    `yaml:"sound_bit"`
	AmpBit     int    `yaml:"amp_bit"`
}

// ExpanderConfig locates the CPLD expander on I2C.
type ExpanderConfig struct {
	Bus       string `yaml:"bus"`
	Addr      uint16 `yaml:"addr"`
	OpsPerSec int    `yaml:"ops_per_sec"`
}

// LogConfig controls log level and optional rotated file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// APIConfig controls the HTTP control surface.
type APIConfig struct {
	Addr     string `yaml:"addr"`
	Zeroconf bool   `yaml:"zeroconf"`
	// TokenSecretFile enables HS256 bearer tokens signed with its contents.
	TokenSecretFile string `yaml:"token_secret_file"`
}

// Default returns the stock board configuration.
func Default() Config {
	return Config{
		Radio: RadioConfig{
			Enabled:   true,
			Name:      "loox720-bt",
			ResetLine: "BT_RESET_N",
			PowerBit:  20,
			RadioBit:  21,
			LED:       0,
			ResetHold: time.Millisecond,
			Settle:    time.Millisecond,
			Firmware: FirmwareConfig{
				UART:     "/dev/ttyS1",
				Baud:     921600,
				Tries:    50,
				Interval: 10 * time.Millisecond,
			},
		},
		Jack: JackConfig{
			Enabled:    true,
			DetectLine: "HP_DET",
			IRQBackend: "periph",
			Chip:       "gpiochip0",
			SoundBit:   24,
			AmpBit:     25,
		},
		Expander: ExpanderConfig{
			Bus:       "/dev/i2c-0",
			Addr:      0x20,
			OpsPerSec: 200,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		API: APIConfig{
			Addr:     ":8080",
			Zeroconf: true,
		},
		Backup: BackupConfig{
			Enabled:    true,
			Hour:       2,
			MaxAgeDays: 90,
		},
		StateDir: "/var/lib/periphd",
	}
}

// Load returns defaults overlaid with the YAML file at path (if path is
// non-empty and exists) and then PERIPHD_* environment variables. The
// result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return writeFileAtomic(path, data)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"PERIPHD_LOG_LEVEL":        &cfg.Log.Level,
		"PERIPHD_LOG_FILE":         &cfg.Log.File,
		"PERIPHD_API_ADDR":         &cfg.API.Addr,
		"PERIPHD_I2C_BUS":          &cfg.Expander.Bus,
		"PERIPHD_JACK_IRQ_BACKEND": &cfg.Jack.IRQBackend,
		"PERIPHD_FIRMWARE_UART":    &cfg.Radio.Firmware.UART,
		"PERIPHD_STATE_DIR":        &cfg.StateDir,
		"PERIPHD_TOKEN_SECRET":     &cfg.API.TokenSecretFile,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	flags := map[string]*bool{
		"PERIPHD_RADIO_ENABLED": &cfg.Radio.Enabled,
		"PERIPHD_JACK_ENABLED":  &cfg.Jack.Enabled,
		"PERIPHD_FIRMWARE_WAIT": &cfg.Radio.Firmware.Wait,
		"PERIPHD_HCI_ATTACH":    &cfg.Radio.Attach.Enabled,
		"PERIPHD_ZEROCONF":      &cfg.API.Zeroconf,
	}
	for key, dst := range flags {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// maxExpanderBit mirrors the expander's register width.
const maxExpanderBit = 31

// Validate reports every problem with cfg, joined.
func (c *Config) Validate() error {
	var errs []error
	bit := func(name string, v int) {
		if v < 0 || v > maxExpanderBit {
			errs = append(errs, fmt.Errorf("%s: bit %d out of range 0..%d", name, v, maxExpanderBit))
		}
	}
	if c.Radio.Enabled {
		if c.Radio.Name == "" {
			errs = append(errs, errors.New("radio.name: required"))
		}
		if c.Radio.ResetLine == "" {
			errs = append(errs, errors.New("radio.reset_line: required"))
		}
		bit("radio.power_bit", c.Radio.PowerBit)
		bit("radio.radio_bit", c.Radio.RadioBit)
		if c.Radio.PowerBit == c.Radio.RadioBit {
			errs = append(errs, errors.New("radio: power_bit and radio_bit must differ"))
		}
		if c.Radio.ResetHold < 0 || c.Radio.Settle < 0 {
			errs = append(errs, errors.New("radio: delays must not be negative"))
		}
		if fw := c.Radio.Firmware; fw.Wait {
			if fw.UART == "" {
				errs = append(errs, errors.New("radio.firmware.uart: required when wait is enabled"))
			}
			if fw.Tries <= 0 || fw.Interval <= 0 {
				errs = append(errs, errors.New("radio.firmware: tries and interval must be positive"))
			}
		}
		if at := c.Radio.Attach; at.Enabled && len(at.Command) == 0 && c.Radio.Firmware.UART == "" {
			errs = append(errs, errors.New("radio.attach: command or radio.firmware.uart required"))
		}
	}
	if c.Jack.Enabled {
		if c.Jack.DetectLine == "" {
			errs = append(errs, errors.New("jack.detect_line: required"))
		}
		switch c.Jack.IRQBackend {
		case "periph", "cdev":
		default:
			errs = append(errs, fmt.Errorf("jack.irq_backend: %q is not periph or cdev", c.Jack.IRQBackend))
		}
		bit("jack.sound_bit", c.Jack.SoundBit)
		bit("jack.amp_bit", c.Jack.AmpBit)
	}
	if c.Expander.Bus == "" {
		errs = append(errs, errors.New("expander.bus: required"))
	}
	if c.Expander.OpsPerSec <= 0 {
		errs = append(errs, errors.New("expander.ops_per_sec: must be positive"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Backup.Hour < 0 || c.Backup.Hour > 23 {
		errs = append(errs, fmt.Errorf("backup.hour: %d out of range 0..23", c.Backup.Hour))
	}
	if c.API.Addr == "" {
		errs = append(errs, errors.New("api.addr: required"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level: unknown level %q", s)
}
