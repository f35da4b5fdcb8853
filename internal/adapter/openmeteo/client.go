// Package openmeteo is a client for the Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m"

// Client queries the Open-Meteo forecast endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a weather client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Current is the model-facing rendering of current conditions.
type Current struct {
	Temperature     *float64 `json:"temperature"`
	TemperatureUnit string   `json:"temperature_unit"`
	FeelsLike       *float64 `json:"feels_like"`
	Humidity        *float64 `json:"humidity"`
	WindSpeed       *float64 `json:"wind_speed"`
	WindSpeedUnit   string   `json:"wind_speed_unit"`
	Precipitation   *float64 `json:"precipitation"`
	WeatherCode     *int     `json:"weather_code"`
	Timezone        string   `json:"timezone"`
	Location        string   `json:"location"`
}

type forecastResponse struct {
	Timezone     string            `json:"timezone"`
	CurrentUnits map[string]string `json:"current_units"`
	Current      struct {
		Temperature2m       *float64 `json:"temperature_2m"`
		RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		Precipitation       *float64 `json:"precipitation"`
		WeatherCode         *int     `json:"weather_code"`
		WindSpeed10m        *float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// CurrentWeather fetches current conditions at a coordinate.
func (c *Client) CurrentWeather(ctx context.Context, latitude, longitude float64) (*Current, error) {
	lat := strconv.FormatFloat(latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(longitude, 'f', -1, 64)

	params := url.Values{}
	params.Set("latitude", lat)
	params.Set("longitude", lon)
	params.Set("current", currentFields)
	params.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Open-Meteo error [%d]: %s", resp.StatusCode, string(body))
	}

	var fr forecastResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &Current{
		Temperature:     fr.Current.Temperature2m,
		TemperatureUnit: unit(fr.CurrentUnits, "temperature_2m", "°C"),
		FeelsLike:       fr.Current.ApparentTemperature,
		Humidity:        fr.Current.RelativeHumidity2m,
		WindSpeed:       fr.Current.WindSpeed10m,
		WindSpeedUnit:   unit(fr.CurrentUnits, "wind_speed_10m", "km/h"),
		Precipitation:   fr.Current.Precipitation,
		WeatherCode:     fr.Current.WeatherCode,
		Timezone:        fr.Timezone,
		Location:        fmt.Sprintf("Lat: %s, Lon: %s", lat, lon),
	}, nil
}

func unit(units map[string]string, key, fallback string) string {
	if u, ok := units[key]; ok && u != "" {
		return u
	}
	return fallback
}
