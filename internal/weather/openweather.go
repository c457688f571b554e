package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

type OpenWeatherClient struct {
	apiKey    string
	city      string
	country   string
	latitude  float64
	longitude float64
	units     string
	endpoint  string
	client    *http.Client
}

func NewOpenWeatherClient(apiKey, city, country string, latitude, longitude float64, units string) *OpenWeatherClient {
	if units == "" {
		units = "metric"
	}
	return &OpenWeatherClient{
		apiKey:    apiKey,
		city:      city,
		country:   country,
		latitude:  latitude,
		longitude: longitude,
		units:     units,
		endpoint:  openWeatherURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type openWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Rain struct {
		OneHour   float64 `json:"1h"`
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt       int64 `json:"dt"`
	Timezone int64 `json:"timezone"`
	Sys      struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

func (c *OpenWeatherClient) Get(ctx context.Context) (*Data, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is empty")
	}

	query := url.Values{}
	query.Set("appid", c.apiKey)
	query.Set("units", c.units)

	switch {
	case c.latitude != 0 || c.longitude != 0:
		query.Set("lat", fmt.Sprintf("%.6f", c.latitude))
		query.Set("lon", fmt.Sprintf("%.6f", c.longitude))
	case c.city != "" && c.country != "":
		query.Set("q", c.city+","+c.country)
	case c.city != "":
		query.Set("q", c.city)
	default:
		return nil, fmt.Errorf("openweather location is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openweather bad status: %s", resp.Status)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openweather decode: %w", err)
	}

	data := &Data{
		Provider:   "openweather",
		Clouds:     payload.Clouds.All,
		Rain1h:     payload.Rain.OneHour,
		Rain3h:     payload.Rain.ThreeHour,
		WindSpeed:  payload.Wind.Speed,
		ObservedAt: time.Unix(payload.Dt, 0).UTC(),
		Sunrise:    time.Unix(payload.Sys.Sunrise, 0).UTC(),
		Sunset:     time.Unix(payload.Sys.Sunset, 0).UTC(),
	}
	if len(payload.Weather) > 0 {
		data.Condition = payload.Weather[0].Main
		data.Description = payload.Weather[0].Description
	}

	// Present times in the location's own offset.
	zone := time.FixedZone("", int(payload.Timezone))
	data.ObservedAt = data.ObservedAt.In(zone)
	data.Sunrise = data.Sunrise.In(zone)
	data.Sunset = data.Sunset.In(zone)

	return data, nil
}
