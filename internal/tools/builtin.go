package tools

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/xiaot623/tripchat/internal/adapter/openmeteo"
	"github.com/xiaot623/tripchat/internal/adapter/otp"
	"github.com/xiaot623/tripchat/internal/adapter/photon"
)

// Timezone is the zone the assistant reasons in.
const Timezone = "America/Montreal"

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]photon.Place, error)
}

// WeatherSource reports current conditions.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, latitude, longitude float64) (*openmeteo.Current, error)
}

// TripPlanner plans itineraries.
type TripPlanner interface {
	Plan(ctx context.Context, req otp.PlanRequest) (*otp.PlanResult, error)
}

// FeedSource fetches a GTFS-RT trip updates feed.
type FeedSource interface {
	Fetch(ctx context.Context) (*gtfs.FeedMessage, error)
}

// Backends are the external services the builtin tools call.
type Backends struct {
	Geocoder Geocoder
	Weather  WeatherSource
	Planner  TripPlanner
	Feed     FeedSource
}

// Builtin returns the catalog of trip assistant tools in their fixed order.
func Builtin(b Backends) (*Catalog, error) {
	return NewCatalog(
		NewDatetimeTool(nil),
		NewGeocodeTool(b.Geocoder),
		NewWeatherTool(b.Weather),
		NewTripTool(b.Planner, nil),
		NewAlertsTool(b.Feed),
	)
}

func montreal() *time.Location {
	loc, err := time.LoadLocation(Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
