package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, SourceSim, cfg.Source)
	assert.Equal(t, 100*time.Millisecond, cfg.Interval)
	assert.Equal(t, 5.0, cfg.Gesture.MinDelta)
	assert.Equal(t, -30.0, cfg.Gesture.LowPitch)
	assert.Equal(t, 30.0, cfg.Gesture.HighPitch)
	assert.Equal(t, 2*time.Second, cfg.Gesture.Window)
	assert.Equal(t, 60*time.Second, cfg.Offering.Duration)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 28, cfg.Button.OfferCode)
	assert.Equal(t, 1, cfg.Button.ExtinguishCode)
}

func TestFileAndEnv(t *testing.T) {
	path := writeFile(t, `
source = "serial"

[serial]
port = "/dev/ttyUSB1"
baud_rate = 57600

[gesture]
window = "1500ms"
high_pitch = 40.0

[offering]
duration = "30s"
`)
	t.Setenv("INCENSE_GESTURE_LOW_PITCH", "-45")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, SourceSerial, cfg.Source)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.Equal(t, 1500*time.Millisecond, cfg.Gesture.Window)
	assert.Equal(t, 40.0, cfg.Gesture.HighPitch)
	assert.Equal(t, -45.0, cfg.Gesture.LowPitch)
	assert.Equal(t, 30*time.Second, cfg.Offering.Duration)
}

func TestExplicitFileMustExist(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	path := writeFile(t, `
source = "replay"

[gesture]
low_pitch = 50.0
`)
	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay.file")
	assert.Contains(t, err.Error(), "low pitch")

	path = writeFile(t, `source = "bluetooth"`)
	_, err = Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestWrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))
	out := buf.String()
	assert.Contains(t, out, `source = "sim"`)
	assert.Contains(t, out, "[gesture]")
	assert.Contains(t, out, "low_pitch = -30.0")
	assert.Contains(t, out, `port = "/dev/ttyACM0"`)
}
