package tools

import (
	"context"
	"fmt"

	"github.com/xiaot623/tripchat/internal/adapter/photon"
)

// GeocodeTool converts place names to coordinates.
type GeocodeTool struct {
	geocoder Geocoder
}

// NewGeocodeTool creates the geocoding tool.
func NewGeocodeTool(g Geocoder) *GeocodeTool {
	return &GeocodeTool{geocoder: g}
}

func (t *GeocodeTool) Definition() Definition {
	return Definition{
		Name:        "geocode_location",
		Description: "Convert a location name or address into geographic coordinates (latitude, longitude). CRITICAL: ALWAYS use this tool to convert location names to coordinates. NEVER guess or assume coordinates for destinations. This tool searches OpenStreetMap data for ALL Canadian locations, so be specific by adding city name and 'Quebec' to your query (e.g., 'Montreal, Quebec' or 'Laval, Quebec') to get accurate results.",
		Parameters: ObjectSchema(map[string]Property{
			"query": {
				Type:        TypeString,
				Description: "The location name or address to geocode. IMPORTANT: Always include city name and 'Quebec' for accuracy. Examples: 'Old Montreal, Montreal, Quebec', 'McGill University, Montreal, Quebec', 'Carrefour Laval, Laval, Quebec', 'Longueuil metro, Longueuil, Quebec'",
			},
			"limit": {
				Type:        TypeNumber,
				Description: "Maximum number of results to return (default: 1)",
			},
		}, "query"),
	}
}

type geocodeResult struct {
	Success bool           `json:"success"`
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []photon.Place `json:"results"`
}

type geocodeMiss struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Query   string `json:"query"`
}

func (t *GeocodeTool) Call(ctx context.Context, args Args) (any, error) {
	if t.geocoder == nil {
		return nil, fmt.Errorf("geocoder is not configured")
	}
	query := args.String("query")
	places, err := t.geocoder.Search(ctx, query, args.IntOr("limit", 1))
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return geocodeMiss{
			Success: false,
			Error:   fmt.Sprintf("No results found for '%s'", query),
			Query:   query,
		}, nil
	}
	return geocodeResult{Success: true, Query: query, Count: len(places), Results: places}, nil
}
