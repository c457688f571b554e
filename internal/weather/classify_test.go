package weather

import (
	"testing"

	"farmbeats-monitor/config"
	"farmbeats-monitor/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data *Data
		want simulation.WeatherCondition
	}{
		{"clear", &Data{Condition: "Clear", Clouds: 0}, simulation.Sunny},
		{"few clouds", &Data{Condition: "Clouds", Clouds: 30}, simulation.Sunny},
		{"overcast", &Data{Condition: "Clouds", Clouds: 90}, simulation.Cloudy},
		{"light rain", &Data{Condition: "Rain", Rain1h: 1.2}, simulation.Cloudy},
		{"rain over 3h", &Data{Condition: "Rain", Rain3h: 4.5}, simulation.Cloudy},
		{"heavy rain", &Data{Condition: "Rain", Rain1h: 6}, simulation.Storm},
		{"heavy rain over 3h", &Data{Condition: "Rain", Rain3h: 18}, simulation.Storm},
		{"thunderstorm", &Data{Condition: "Thunderstorm", Clouds: 10}, simulation.Storm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.data)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := Classify(nil)
	assert.False(t, ok)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.WeatherConfig{Enabled: false, Provider: "openmeteo"})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(config.WeatherConfig{Enabled: true, Provider: "Open-Meteo", City: "Zwickau"})
	require.NoError(t, err)
	assert.IsType(t, &OpenMeteoClient{}, p)

	p, err = NewProvider(config.WeatherConfig{Enabled: true, Provider: "openweather", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenWeatherClient{}, p)

	_, err = NewProvider(config.WeatherConfig{Enabled: true, Provider: "metoffice"})
	assert.Error(t, err)
}
