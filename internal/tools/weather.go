package tools

import (
	"context"
	"fmt"
)

// WeatherTool reports current weather at a coordinate.
type WeatherTool struct {
	source WeatherSource
}

// NewWeatherTool creates the weather tool.
func NewWeatherTool(s WeatherSource) *WeatherTool {
	return &WeatherTool{source: s}
}

func (t *WeatherTool) Definition() Definition {
	return Definition{
		Name:        "get_weather",
		Description: "Get current weather information for a specific location using latitude and longitude coordinates",
		Parameters: ObjectSchema(map[string]Property{
			"latitude": {
				Type:        TypeNumber,
				Description: "Latitude of the location (e.g., 45.5017 for Montreal)",
			},
			"longitude": {
				Type:        TypeNumber,
				Description: "Longitude of the location (e.g., -73.5673 for Montreal)",
			},
		}, "latitude", "longitude"),
	}
}

func (t *WeatherTool) Call(ctx context.Context, args Args) (any, error) {
	if t.source == nil {
		return nil, fmt.Errorf("weather source is not configured")
	}
	return t.source.CurrentWeather(ctx, args.Float("latitude"), args.Float("longitude"))
}
