package weather

import (
	"fmt"
	"strings"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/simulation"
)

const (
	stormRainMM    = 5.0
	cloudyRainMM   = 1.0
	cloudyCoverPct = 50
)

// NewProvider builds the provider named in the config, or nil when weather
// is disabled.
func NewProvider(cfg config.WeatherConfig) (Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "openweather":
		return NewOpenWeatherClient(cfg.APIKey, cfg.City, cfg.Country, cfg.Latitude, cfg.Longitude, cfg.Units), nil
	case "openmeteo", "open-meteo", "open_meteo":
		return NewOpenMeteoClient(cfg.City, cfg.Country, cfg.Latitude, cfg.Longitude, cfg.Units), nil
	default:
		return nil, fmt.Errorf("weather provider not supported: %s", cfg.Provider)
	}
}

// Classify reduces live weather to one of the simulated conditions. The
// hourly rain rate is the larger of the last hour and the 3h average.
func Classify(data *Data) (simulation.WeatherCondition, bool) {
	if data == nil {
		return 0, false
	}

	rain := data.Rain1h
	if data.Rain3h/3 > rain {
		rain = data.Rain3h / 3
	}

	if strings.Contains(strings.ToLower(data.Condition), "thunder") || rain >= stormRainMM {
		return simulation.Storm, true
	}
	if rain >= cloudyRainMM || data.Clouds >= cloudyCoverPct {
		return simulation.Cloudy, true
	}
	return simulation.Sunny, true
}
