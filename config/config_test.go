package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"farmbeats-monitor/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "api:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "Sunny", cfg.Simulation.Condition)
	assert.Equal(t, SourceManual, cfg.Simulation.Source)
	assert.Equal(t, 30*time.Second, cfg.Simulation.Interval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Simulation.DroneDelay)
	assert.Equal(t, "Zwickau Farm", cfg.Simulation.FarmName)
	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.Device.Enabled)
	assert.Equal(t, uint8(1), cfg.Device.SlaveID)
	assert.Equal(t, 720*time.Hour, cfg.Database.Retention)

	c, err := cfg.Simulation.InitialCondition()
	require.NoError(t, err)
	assert.Equal(t, simulation.Sunny, c)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
simulation:
  condition: storm
  source: live
  interval: 1m
weather:
  enabled: true
  provider: openweather
  api_key: secret
device:
  enabled: true
  port: 1502
`))
	require.NoError(t, err)

	c, err := cfg.Simulation.InitialCondition()
	require.NoError(t, err)
	assert.Equal(t, simulation.Storm, c)
	assert.Equal(t, SourceLive, cfg.Simulation.Source)
	assert.Equal(t, time.Minute, cfg.Simulation.Interval)
	assert.True(t, cfg.Weather.Enabled)
	assert.Equal(t, "openweather", cfg.Weather.Provider)
	assert.Equal(t, "secret", cfg.Weather.APIKey)
	assert.True(t, cfg.Device.Enabled)
	assert.Equal(t, 1502, cfg.Device.Port)
}

func TestLoadInvalidCondition(t *testing.T) {
	_, err := Load(writeConfig(t, "simulation:\n  condition: Hail\n"))
	require.Error(t, err)

	var invalid *simulation.InvalidConditionError
	assert.True(t, errors.As(err, &invalid))
}

func TestLoadInvalidSource(t *testing.T) {
	_, err := Load(writeConfig(t, "simulation:\n  source: satellite\n"))
	assert.ErrorContains(t, err, "simulation.source")
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeConfig(t, "api:\n  port: 9100\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.Simulation.Condition = "Cloudy"
	cfg.Weather.Enabled = true
	cfg.Weather.City = "Chemnitz"
	require.NoError(t, Save(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, reloaded.API.Port)
	assert.Equal(t, "Cloudy", reloaded.Simulation.Condition)
	assert.True(t, reloaded.Weather.Enabled)
	assert.Equal(t, "Chemnitz", reloaded.Weather.City)
}

func TestSaveNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.yaml")
	cfg := &Config{Simulation: SimulationConfig{Condition: "Storm", Source: SourceManual}}
	require.NoError(t, Save(path, cfg))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Storm", reloaded.Simulation.Condition)
}
