package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	openMeteoForecastURL  = "https://api.open-meteo.com/v1/forecast"
	openMeteoGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	openMeteoTimeLayout   = "2006-01-02T15:04"
)

// OpenMeteoClient needs no API key; it geocodes the city when no
// coordinates are configured.
type OpenMeteoClient struct {
	city         string
	country      string
	latitude     float64
	longitude    float64
	units        string
	forecastURL  string
	geocodingURL string
	client       *http.Client
}

func NewOpenMeteoClient(city, country string, latitude, longitude float64, units string) *OpenMeteoClient {
	if units == "" {
		units = "metric"
	}
	return &OpenMeteoClient{
		city:         city,
		country:      country,
		latitude:     latitude,
		longitude:    longitude,
		units:        units,
		forecastURL:  openMeteoForecastURL,
		geocodingURL: openMeteoGeocodingURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Time          string  `json:"time"`
		WeatherCode   int     `json:"weather_code"`
		CloudCover    float64 `json:"cloud_cover"`
		Precipitation float64 `json:"precipitation"`
		WindSpeed     float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time          []string  `json:"time"`
		Precipitation []float64 `json:"precipitation"`
	} `json:"hourly"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

type openMeteoGeoResponse struct {
	Results []struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

func (c *OpenMeteoClient) Get(ctx context.Context) (*Data, error) {
	lat, lon, err := c.resolveLocation(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", lat))
	query.Set("longitude", fmt.Sprintf("%.6f", lon))
	query.Set("current", "weather_code,cloud_cover,precipitation,wind_speed_10m")
	query.Set("hourly", "precipitation")
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "1")
	query.Set("past_days", "1")
	query.Set("precipitation_unit", "mm")
	if c.units == "imperial" {
		query.Set("wind_speed_unit", "mph")
	}

	var payload openMeteoResponse
	if err := c.getJSON(ctx, c.forecastURL, query, &payload); err != nil {
		return nil, fmt.Errorf("open-meteo: %w", err)
	}

	if strings.TrimSpace(payload.Current.Time) == "" {
		return nil, fmt.Errorf("open-meteo current data missing")
	}

	loc := time.UTC
	if payload.Timezone != "" {
		if parsed, err := time.LoadLocation(payload.Timezone); err == nil {
			loc = parsed
		}
	}
	observed := parseOpenMeteoTime(payload.Current.Time, loc)
	sunrise, sunset := pickOpenMeteoSunTimes(observed, payload.Daily.Sunrise, payload.Daily.Sunset, loc)
	condition, description := openMeteoDescribe(payload.Current.WeatherCode)

	return &Data{
		Provider:    "openmeteo",
		Condition:   condition,
		Description: description,
		Clouds:      int(math.Round(payload.Current.CloudCover)),
		Rain1h:      payload.Current.Precipitation,
		Rain3h:      sumOpenMeteoPrecip(observed, payload.Hourly.Time, payload.Hourly.Precipitation, loc),
		WindSpeed:   payload.Current.WindSpeed,
		Sunrise:     sunrise,
		Sunset:      sunset,
		ObservedAt:  observed,
	}, nil
}

func (c *OpenMeteoClient) resolveLocation(ctx context.Context) (float64, float64, error) {
	if c.latitude != 0 || c.longitude != 0 {
		return c.latitude, c.longitude, nil
	}

	if strings.TrimSpace(c.city) == "" {
		return 0, 0, fmt.Errorf("open-meteo location is empty")
	}

	query := url.Values{}
	query.Set("name", c.city)
	query.Set("count", "1")
	query.Set("language", "en")
	query.Set("format", "json")
	if strings.TrimSpace(c.country) != "" {
		query.Set("countryCode", c.country)
	}

	var payload openMeteoGeoResponse
	if err := c.getJSON(ctx, c.geocodingURL, query, &payload); err != nil {
		return 0, 0, fmt.Errorf("open-meteo geocoding: %w", err)
	}
	if len(payload.Results) == 0 {
		return 0, 0, fmt.Errorf("open-meteo geocoding found no results for %q", c.city)
	}

	c.latitude = payload.Results[0].Latitude
	c.longitude = payload.Results[0].Longitude
	return c.latitude, c.longitude, nil
}

func (c *OpenMeteoClient) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func parseOpenMeteoTime(value string, loc *time.Location) time.Time {
	if t, err := time.ParseInLocation(openMeteoTimeLayout, value, loc); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
		return t
	}
	return time.Time{}
}

// pickOpenMeteoSunTimes returns the sunrise/sunset pair for the observed day,
// falling back to the last complete pair.
func pickOpenMeteoSunTimes(observed time.Time, sunrises, sunsets []string, loc *time.Location) (time.Time, time.Time) {
	count := len(sunrises)
	if len(sunsets) < count {
		count = len(sunsets)
	}

	var sunrise, sunset time.Time
	for i := 0; i < count; i++ {
		rise := parseOpenMeteoTime(sunrises[i], loc)
		set := parseOpenMeteoTime(sunsets[i], loc)
		if rise.IsZero() || set.IsZero() {
			continue
		}
		sunrise, sunset = rise, set
		if rise.YearDay() == observed.YearDay() && rise.Year() == observed.Year() {
			break
		}
	}
	return sunrise, sunset
}

// sumOpenMeteoPrecip adds up hourly precipitation over the three hours
// ending at now.
func sumOpenMeteoPrecip(now time.Time, times []string, values []float64, loc *time.Location) float64 {
	if len(times) == 0 || len(times) != len(values) {
		return 0
	}

	windowStart := now.Add(-3 * time.Hour)
	sum := 0.0
	for i, value := range values {
		t := parseOpenMeteoTime(times[i], loc)
		if t.IsZero() {
			continue
		}
		if t.After(windowStart) && !t.After(now) {
			sum += value
		}
	}
	return sum
}

// openMeteoDescribe maps WMO weather codes to a condition group and a
// human description.
func openMeteoDescribe(code int) (string, string) {
	switch code {
	case 0:
		return "Clear", "clear sky"
	case 1:
		return "Clouds", "mainly clear"
	case 2:
		return "Clouds", "partly cloudy"
	case 3:
		return "Clouds", "overcast"
	case 45, 48:
		return "Fog", "fog"
	case 51, 53, 55, 56, 57:
		return "Drizzle", "drizzle"
	case 61, 63, 65, 66, 67:
		return "Rain", "rain"
	case 71, 73, 75, 77:
		return "Snow", "snow"
	case 80, 81, 82:
		return "Rain", "rain showers"
	case 85, 86:
		return "Snow", "snow showers"
	case 95:
		return "Thunderstorm", "thunderstorm"
	case 96, 99:
		return "Thunderstorm", "thunderstorm with hail"
	default:
		return "Unknown", "unknown condition"
	}
}
