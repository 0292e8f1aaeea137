// Package config loads daemon configuration from defaults, an optional YAML
// file and HOTPLUGD_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/hotplug"
	"github.com/sanverite/hotplugd/internal/input"
	"github.com/sanverite/hotplugd/internal/platform"
)

type Config struct {
	API        APIConfig        `yaml:"api"`
	Controller ControllerConfig `yaml:"controller"`
	Platform   PlatformConfig   `yaml:"platform"`
	Input      InputConfig      `yaml:"input"`
	Display    DisplayConfig    `yaml:"display"`
	Log        LogConfig        `yaml:"log"`
}

type APIConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ControllerConfig struct {
	Active          bool `yaml:"active"`
	EcoMode         bool `yaml:"eco_mode"`
	TouchBoost      bool `yaml:"touch_boost"`
	ScreenOffMaxKHz uint `yaml:"screen_off_max_khz"`
	Hysteresis      uint `yaml:"hysteresis"`
	FineShift       uint `yaml:"fine_shift"`

	SamplingPeriod     time.Duration `yaml:"sampling_period"`
	BusySamplingPeriod time.Duration `yaml:"busy_sampling_period"`
	BoostDelay         time.Duration `yaml:"boost_delay"`
	ResumeDelay        time.Duration `yaml:"resume_delay"`
	StartDelay         time.Duration `yaml:"start_delay"`
	WakeupBoostWindow  time.Duration `yaml:"wakeup_boost_window"`
}

type PlatformConfig struct {
	CPURoot      string        `yaml:"cpu_root"`
	LoadInterval time.Duration `yaml:"load_interval"`
	DepthWindow  int           `yaml:"depth_window"`
}

type InputConfig struct {
	Enabled bool   `yaml:"enabled"`
	Glob    string `yaml:"glob"`
}

type DisplayConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BacklightPath string        `yaml:"backlight_path"`
	PollInterval  time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultListen is the Control Surface address when none is configured.
const DefaultListen = "127.0.0.1:8787"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Enabled:         true,
			Listen:          DefaultListen,
			ShutdownTimeout: 5 * time.Second,
		},
		Controller: ControllerConfig{
			Active:             true,
			TouchBoost:         true,
			ScreenOffMaxKHz:    0,
			Hysteresis:         hotplug.DefaultHysteresis,
			FineShift:          hotplug.DefaultFineShift,
			SamplingPeriod:     hotplug.DefaultSamplingPeriod,
			BusySamplingPeriod: hotplug.DefaultBusySamplingPeriod,
			BoostDelay:         hotplug.DefaultBoostDelay,
			ResumeDelay:        hotplug.DefaultResumeDelay,
			StartDelay:         hotplug.DefaultStartDelay,
			WakeupBoostWindow:  hotplug.DefaultWakeupBoostWindow,
		},
		Platform: PlatformConfig{
			CPURoot:      platform.DefaultCPURoot,
			LoadInterval: platform.DefaultLoadInterval,
			DepthWindow:  platform.DefaultDepthWindow,
		},
		Input: InputConfig{
			Enabled: true,
			Glob:    input.DefaultGlob,
		},
		Display: DisplayConfig{
			Enabled:      false,
			PollInterval: time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.Enabled = getEnvBool("HOTPLUGD_API_ENABLED", c.API.Enabled)
	c.API.Listen = getEnv("HOTPLUGD_LISTEN", c.API.Listen)

	ctl := &c.Controller
	ctl.Active = getEnvBool("HOTPLUGD_ACTIVE", ctl.Active)
	ctl.EcoMode = getEnvBool("HOTPLUGD_ECO_MODE", ctl.EcoMode)
	ctl.TouchBoost = getEnvBool("HOTPLUGD_TOUCH_BOOST", ctl.TouchBoost)
	ctl.ScreenOffMaxKHz = uint(getEnvInt("HOTPLUGD_SCREEN_OFF_MAX_KHZ", int(ctl.ScreenOffMaxKHz)))
	ctl.Hysteresis = uint(getEnvInt("HOTPLUGD_HYSTERESIS", int(ctl.Hysteresis)))
	ctl.FineShift = uint(getEnvInt("HOTPLUGD_FINE_SHIFT", int(ctl.FineShift)))
	ctl.SamplingPeriod = getEnvDuration("HOTPLUGD_SAMPLING_PERIOD", ctl.SamplingPeriod)
	ctl.BusySamplingPeriod = getEnvDuration("HOTPLUGD_BUSY_SAMPLING_PERIOD", ctl.BusySamplingPeriod)

	c.Platform.CPURoot = getEnv("HOTPLUGD_CPU_ROOT", c.Platform.CPURoot)
	c.Input.Enabled = getEnvBool("HOTPLUGD_INPUT_ENABLED", c.Input.Enabled)
	c.Input.Glob = getEnv("HOTPLUGD_INPUT_GLOB", c.Input.Glob)
	c.Display.Enabled = getEnvBool("HOTPLUGD_DISPLAY_ENABLED", c.Display.Enabled)
	c.Display.BacklightPath = getEnv("HOTPLUGD_BACKLIGHT_PATH", c.Display.BacklightPath)
	c.Log.Level = getEnv("HOTPLUGD_LOG_LEVEL", c.Log.Level)
}

func (c *Config) validate() error {
	var errs []error
	if c.API.Enabled && c.API.Listen == "" {
		errs = append(errs, errors.New("api.listen is required when the api is enabled"))
	}
	for _, p := range []struct {
		name string
		d    time.Duration
	}{
		{"controller.sampling_period", c.Controller.SamplingPeriod},
		{"controller.busy_sampling_period", c.Controller.BusySamplingPeriod},
		{"controller.boost_delay", c.Controller.BoostDelay},
		{"controller.resume_delay", c.Controller.ResumeDelay},
		{"controller.start_delay", c.Controller.StartDelay},
		{"controller.wakeup_boost_window", c.Controller.WakeupBoostWindow},
		{"platform.load_interval", c.Platform.LoadInterval},
	} {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", p.name))
		}
	}
	if c.Display.Enabled {
		if c.Display.BacklightPath == "" {
			errs = append(errs, errors.New("display.backlight_path is required when the display watcher is enabled"))
		}
		if c.Display.PollInterval <= 0 {
			errs = append(errs, errors.New("display.poll_interval must be positive"))
		}
	}
	return errors.Join(errs...)
}

// Tunables returns the operator tunables the daemon starts with.
func (c *Config) Tunables() core.Tunables {
	return core.Tunables{
		Active:          c.Controller.Active,
		EcoMode:         c.Controller.EcoMode,
		TouchBoost:      c.Controller.TouchBoost,
		ScreenOffMaxKHz: c.Controller.ScreenOffMaxKHz,
		Hysteresis:      c.Controller.Hysteresis,
		FineShift:       c.Controller.FineShift,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
