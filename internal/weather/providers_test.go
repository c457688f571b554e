package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openMeteoFixture = `{
  "timezone": "UTC",
  "current": {"time": "2026-06-15T12:00", "weather_code": 95, "cloud_cover": 87.6, "precipitation": 2.5, "wind_speed_10m": 14.2},
  "hourly": {
    "time": ["2026-06-15T09:00", "2026-06-15T10:00", "2026-06-15T11:00", "2026-06-15T12:00", "2026-06-15T13:00"],
    "precipitation": [9, 1, 2, 3, 50]
  },
  "daily": {
    "sunrise": ["2026-06-14T04:55", "2026-06-15T04:56"],
    "sunset": ["2026-06-14T21:30", "2026-06-15T21:31"]
  }
}`

func TestOpenMeteoGet(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(openMeteoFixture))
	}))
	defer srv.Close()

	c := NewOpenMeteoClient("", "", 50.72, 12.49, "")
	c.forecastURL = srv.URL

	data, err := c.Get(context.Background())
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "latitude=50.720000")
	assert.Equal(t, "openmeteo", data.Provider)
	assert.Equal(t, "Thunderstorm", data.Condition)
	assert.Equal(t, 88, data.Clouds)
	assert.Equal(t, 2.5, data.Rain1h)
	// 10:00, 11:00 and 12:00 fall in the three hours ending at 12:00.
	assert.Equal(t, 6.0, data.Rain3h)
	assert.Equal(t, 14.2, data.WindSpeed)
	assert.Equal(t, time.Date(2026, 6, 15, 4, 56, 0, 0, time.UTC), data.Sunrise)
	assert.Equal(t, time.Date(2026, 6, 15, 21, 31, 0, 0, time.UTC), data.Sunset)
	assert.True(t, data.IsDaylight(data.ObservedAt))

	cond, ok := Classify(data)
	require.True(t, ok)
	assert.Equal(t, "Storm", cond.String())
}

func TestOpenMeteoGeocoding(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Zwickau", r.URL.Query().Get("name"))
		w.Write([]byte(`{"results":[{"latitude":50.71,"longitude":12.5}]}`))
	}))
	defer geo.Close()
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50.710000", r.URL.Query().Get("latitude"))
		w.Write([]byte(openMeteoFixture))
	}))
	defer forecast.Close()

	c := NewOpenMeteoClient("Zwickau", "DE", 0, 0, "metric")
	c.geocodingURL = geo.URL
	c.forecastURL = forecast.URL

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.71, c.latitude)
}

func TestOpenMeteoErrors(t *testing.T) {
	_, err := NewOpenMeteoClient("", "", 0, 0, "").Get(context.Background())
	assert.ErrorContains(t, err, "location is empty")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewOpenMeteoClient("", "", 1, 1, "")
	c.forecastURL = srv.URL
	_, err = c.Get(context.Background())
	assert.ErrorContains(t, err, "bad status")
}

func TestOpenWeatherGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("appid"))
		assert.Equal(t, "Zwickau,DE", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"weather": [{"main": "Clouds", "description": "overcast clouds"}],
			"clouds": {"all": 90},
			"wind": {"speed": 3.4},
			"dt": 1781524800,
			"timezone": 7200,
			"sys": {"sunrise": 1781495760, "sunset": 1781551860}
		}`))
	}))
	defer srv.Close()

	c := NewOpenWeatherClient("key", "Zwickau", "DE", 0, 0, "")
	c.endpoint = srv.URL

	data, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openweather", data.Provider)
	assert.Equal(t, "Clouds", data.Condition)
	assert.Equal(t, 90, data.Clouds)
	assert.Equal(t, 3.4, data.WindSpeed)
	_, offset := data.ObservedAt.Zone()
	assert.Equal(t, 7200, offset)
	assert.True(t, data.IsDaylight(data.ObservedAt))

	cond, ok := Classify(data)
	require.True(t, ok)
	assert.Equal(t, "Cloudy", cond.String())
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	_, err := NewOpenWeatherClient("", "Zwickau", "", 0, 0, "").Get(context.Background())
	assert.ErrorContains(t, err, "api key is empty")

	_, err = NewOpenWeatherClient("key", "", "", 0, 0, "").Get(context.Background())
	assert.ErrorContains(t, err, "location is empty")
}
