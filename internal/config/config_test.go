package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanverite/hotplugd/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hotplugd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListen, cfg.API.Listen)
	assert.True(t, cfg.Controller.Active)
	assert.False(t, cfg.Controller.EcoMode)
	assert.True(t, cfg.Controller.TouchBoost)
	assert.Equal(t, uint(0), cfg.Controller.ScreenOffMaxKHz)
	assert.Equal(t, uint(8), cfg.Controller.Hysteresis)
	assert.Equal(t, uint(3), cfg.Controller.FineShift)
	assert.Equal(t, time.Second, cfg.Controller.SamplingPeriod)
	assert.Equal(t, 500*time.Millisecond, cfg.Controller.BusySamplingPeriod)
	assert.Equal(t, 10*time.Millisecond, cfg.Controller.BoostDelay)
	assert.Equal(t, 10*time.Millisecond, cfg.Controller.ResumeDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Controller.WakeupBoostWindow)
	assert.Equal(t, "/sys/devices/system/cpu", cfg.Platform.CPURoot)
	assert.Equal(t, "/dev/input/event*", cfg.Input.Glob)
	assert.False(t, cfg.Display.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  listen: 0.0.0.0:9000
controller:
  eco_mode: true
  screen_off_max_khz: 800000
  sampling_period: 250ms
display:
  enabled: true
  backlight_path: /sys/class/backlight/panel0
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.API.Listen)
	assert.True(t, cfg.Controller.EcoMode)
	assert.Equal(t, uint(800000), cfg.Controller.ScreenOffMaxKHz)
	assert.Equal(t, 250*time.Millisecond, cfg.Controller.SamplingPeriod)
	// untouched keys keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Controller.BusySamplingPeriod)
	assert.True(t, cfg.Display.Enabled)
	assert.Equal(t, time.Second, cfg.Display.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "controller:\n  eco_mode: true\n  hysteresis: 2\n")
	t.Setenv("HOTPLUGD_ECO_MODE", "false")
	t.Setenv("HOTPLUGD_SCREEN_OFF_MAX_KHZ", "600000")
	t.Setenv("HOTPLUGD_SAMPLING_PERIOD", "2s")
	t.Setenv("HOTPLUGD_LISTEN", ":8080")
	t.Setenv("HOTPLUGD_FINE_SHIFT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Controller.EcoMode)
	assert.Equal(t, uint(2), cfg.Controller.Hysteresis)
	assert.Equal(t, uint(600000), cfg.Controller.ScreenOffMaxKHz)
	assert.Equal(t, 2*time.Second, cfg.Controller.SamplingPeriod)
	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, uint(3), cfg.Controller.FineShift)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"negative period", "controller:\n  sampling_period: -1s\n", "controller.sampling_period must be positive"},
		{"empty listen", "api:\n  listen: \"\"\n", "api.listen is required"},
		{"display without path", "display:\n  enabled: true\n", "display.backlight_path is required"},
		{"malformed yaml", "controller: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTunables(t *testing.T) {
	cfg := Default()
	cfg.Controller.EcoMode = true
	cfg.Controller.ScreenOffMaxKHz = 700000

	assert.Equal(t, core.Tunables{
		Active:          true,
		EcoMode:         true,
		TouchBoost:      true,
		ScreenOffMaxKHz: 700000,
		Hysteresis:      8,
		FineShift:       3,
	}, cfg.Tunables())
}
