// Package config loads settings from defaults, an optional TOML file,
// INCENSE_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/luki/incense/internal/button"
	"github.com/luki/incense/internal/capture"
	"github.com/luki/incense/internal/gesture"
	"github.com/luki/incense/internal/motion"
	"github.com/luki/incense/internal/session"
)

// Source kinds.
const (
	SourceSim    = "sim"
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceStdin  = "stdin"
)

type SerialConfig struct {
	Port               string `mapstructure:"port" toml:"port"`
	motion.PortOptions `mapstructure:",squash"`
}

type ReplayConfig struct {
	File  string  `mapstructure:"file" toml:"file"`
	Speed float64 `mapstructure:"speed" toml:"speed"`
	Loop  bool    `mapstructure:"loop" toml:"loop"`
}

type SimConfig struct {
	Period time.Duration `mapstructure:"period" toml:"period"` // time between simulated offerings
}

type OfferingConfig struct {
	Duration time.Duration `mapstructure:"duration" toml:"duration"`
	Video    string        `mapstructure:"video" toml:"video"`
	Player   string        `mapstructure:"player" toml:"player"`
}

type ButtonConfig struct {
	Device         string `mapstructure:"device" toml:"device"`
	OfferCode      int    `mapstructure:"offer_code" toml:"offer_code"`
	ExtinguishCode int    `mapstructure:"extinguish_code" toml:"extinguish_code"`
}

type CaptureConfig struct {
	Record bool   `mapstructure:"record" toml:"record"`
	Dir    string `mapstructure:"dir" toml:"dir"`
}

type LogConfig struct {
	Path  string `mapstructure:"path" toml:"path"`
	Level string `mapstructure:"level" toml:"level"`
}

// Config is the full application configuration.
type Config struct {
	Source   string         `mapstructure:"source" toml:"source"`
	Interval time.Duration  `mapstructure:"interval" toml:"interval"`
	Serial   SerialConfig   `mapstructure:"serial" toml:"serial"`
	Replay   ReplayConfig   `mapstructure:"replay" toml:"replay"`
	Sim      SimConfig      `mapstructure:"sim" toml:"sim"`
	Gesture  gesture.Config `mapstructure:"gesture" toml:"gesture"`
	Offering OfferingConfig `mapstructure:"offering" toml:"offering"`
	Button   ButtonConfig   `mapstructure:"button" toml:"button"`
	Capture  CaptureConfig  `mapstructure:"capture" toml:"capture"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	g := gesture.DefaultConfig()

	v.SetDefault("source", SourceSim)
	v.SetDefault("interval", 100*time.Millisecond)
	v.SetDefault("serial.port", "/dev/ttyACM0")
	v.SetDefault("serial.baud_rate", 115200)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("replay.file", "")
	v.SetDefault("replay.speed", 1.0)
	v.SetDefault("replay.loop", false)
	v.SetDefault("sim.period", 15*time.Second)
	v.SetDefault("gesture.min_delta", g.MinDelta)
	v.SetDefault("gesture.low_pitch", g.LowPitch)
	v.SetDefault("gesture.high_pitch", g.HighPitch)
	v.SetDefault("gesture.window", g.Window)
	v.SetDefault("offering.duration", session.DefaultDuration)
	v.SetDefault("offering.video", "")
	v.SetDefault("offering.player", "mpv")
	v.SetDefault("button.device", "")
	v.SetDefault("button.offer_code", button.DefaultOfferCode)
	v.SetDefault("button.extinguish_code", button.DefaultExtinguishCode)
	v.SetDefault("capture.record", false)
	v.SetDefault("capture.dir", capture.DefaultDir())
	v.SetDefault("log.path", filepath.Join(capture.DefaultDir(), "incense.log"))
	v.SetDefault("log.level", "info")
}

// DefaultFile is the config file read when none is given explicitly.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "incense", "config.toml")
}

// Load reads configuration into a Config. An explicit file must exist; the
// default file is optional.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("incense")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = DefaultFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if explicit || !missing {
				return Config{}, fmt.Errorf("read config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that can be checked without touching
// devices.
func (c Config) Validate() error {
	var errs []error

	switch c.Source {
	case SourceSim, SourceStdin:
	case SourceSerial:
		if c.Serial.Port == "" {
			errs = append(errs, errors.New("serial source needs serial.port"))
		}
		if _, err := c.Serial.Normalize(); err != nil {
			errs = append(errs, fmt.Errorf("serial: %w", err))
		}
	case SourceReplay:
		if c.Replay.File == "" {
			errs = append(errs, errors.New("replay source needs replay.file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source %q: expected sim, serial, replay or stdin", c.Source))
	}

	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval %s must be positive", c.Interval))
	}
	if err := c.Gesture.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gesture: %w", err))
	}
	if c.Offering.Duration < time.Second {
		errs = append(errs, fmt.Errorf("offering duration %s must be at least 1s", c.Offering.Duration))
	}

	return errors.Join(errs...)
}

// Write encodes the configuration as TOML.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
