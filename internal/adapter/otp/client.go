package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
	_ "time/tzdata"
)

// ErrNoRoutes is returned when the planner finds no itinerary.
var ErrNoRoutes = errors.New("No routes found for this trip")

// Timezone is the zone leg times are rendered in.
const Timezone = "America/Montreal"

const numItineraries = 5

// Client talks to an OTP GraphQL endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	location   *time.Location
}

// NewClient creates a planner client for the given GraphQL endpoint URL.
func NewClient(url string, timeout time.Duration) *Client {
	loc, err := time.LoadLocation(Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		location:   loc,
	}
}

// PlanRequest describes a trip to plan.
type PlanRequest struct {
	FromLat  float64
	FromLon  float64
	ToLat    float64
	ToLon    float64
	Modes    []TransportMode
	Time     time.Time
	ArriveBy bool
}

// Point is a coordinate pair as echoed back in a plan result.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlanResult is the model-facing rendering of a successful plan.
type PlanResult struct {
	Success     bool        `json:"success"`
	From        Point       `json:"from"`
	To          Point       `json:"to"`
	Itineraries []Itinerary `json:"itineraries"`
	Count       int         `json:"count"`
}

// Itinerary is one planned option.
type Itinerary struct {
	Duration        int64   `json:"duration"`
	DurationMinutes float64 `json:"duration_minutes"`
	WalkDistance    float64 `json:"walkDistance"`
	Transfers       int     `json:"transfers"`
	StartTime       int64   `json:"startTime"`
	EndTime         int64   `json:"endTime"`
	Legs            []Leg   `json:"legs"`
}

// Leg is one segment of an itinerary. Times are HH:MM in the planner zone.
type Leg struct {
	Mode            string       `json:"mode"`
	From            string       `json:"from"`
	To              string       `json:"to"`
	Distance        float64      `json:"distance"`
	Duration        float64      `json:"duration"`
	DurationMinutes float64      `json:"duration_minutes"`
	StartTime       *string      `json:"startTime"`
	EndTime         *string      `json:"endTime"`
	Route           *string      `json:"route"`
	RouteLongName   *string      `json:"routeLongName"`
	Headsign        *string      `json:"headsign"`
	RentedBike      bool         `json:"rentedBike"`
	FromBixiStation *BikeStation `json:"fromBixiStation,omitempty"`
	ToBixiStation   *BikeStation `json:"toBixiStation,omitempty"`
}

// BikeStation is a bike-share station at a leg endpoint.
type BikeStation struct {
	StationID       string `json:"stationId"`
	Name            string `json:"name"`
	BikesAvailable  *int   `json:"bikesAvailable"`
	SpacesAvailable *int   `json:"spacesAvailable"`
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLResponse struct {
	Data *struct {
		Plan *struct {
			Itineraries []rawItinerary `json:"itineraries"`
		} `json:"plan"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type rawItinerary struct {
	StartTime    int64    `json:"startTime"`
	EndTime      int64    `json:"endTime"`
	Duration     int64    `json:"duration"`
	WalkDistance float64  `json:"walkDistance"`
	Transfers    int      `json:"transfers"`
	Legs         []rawLeg `json:"legs"`
}

type rawPlace struct {
	Name              string       `json:"name"`
	Lat               float64      `json:"lat"`
	Lon               float64      `json:"lon"`
	BikeRentalStation *BikeStation `json:"bikeRentalStation"`
}

type rawLeg struct {
	Mode       string   `json:"mode"`
	StartTime  int64    `json:"startTime"`
	EndTime    int64    `json:"endTime"`
	Duration   float64  `json:"duration"`
	Distance   float64  `json:"distance"`
	RentedBike bool     `json:"rentedBike"`
	From       rawPlace `json:"from"`
	To         rawPlace `json:"to"`
	Route      *struct {
		ShortName *string `json:"shortName"`
		LongName  *string `json:"longName"`
	} `json:"route"`
	Trip *struct {
		TripHeadsign *string `json:"tripHeadsign"`
	} `json:"trip"`
}

// Plan asks the planner for itineraries. A GraphQL error is returned as
// "GraphQL error: <message>"; an empty plan is ErrNoRoutes.
func (c *Client) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	body, err := json.Marshal(graphQLRequest{Query: buildQuery(req)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cannot reach OpenTripPlanner at %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenTripPlanner error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var out graphQLResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(out.Errors) > 0 {
		msg := out.Errors[0].Message
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, fmt.Errorf("GraphQL error: %s", msg)
	}
	if out.Data == nil || out.Data.Plan == nil || len(out.Data.Plan.Itineraries) == 0 {
		return nil, ErrNoRoutes
	}

	result := &PlanResult{
		Success: true,
		From:    Point{Lat: req.FromLat, Lon: req.FromLon},
		To:      Point{Lat: req.ToLat, Lon: req.ToLon},
	}
	for _, it := range out.Data.Plan.Itineraries {
		result.Itineraries = append(result.Itineraries, c.convertItinerary(it))
	}
	result.Count = len(result.Itineraries)
	return result, nil
}

func (c *Client) convertItinerary(it rawItinerary) Itinerary {
	out := Itinerary{
		Duration:        it.Duration,
		DurationMinutes: round(float64(it.Duration)/60, 1),
		WalkDistance:    round(it.WalkDistance, 2),
		Transfers:       it.Transfers,
		StartTime:       it.StartTime,
		EndTime:         it.EndTime,
		Legs:            make([]Leg, 0, len(it.Legs)),
	}
	for _, l := range it.Legs {
		leg := Leg{
			Mode:            l.Mode,
			From:            l.From.Name,
			To:              l.To.Name,
			Distance:        round(l.Distance, 2),
			Duration:        l.Duration,
			DurationMinutes: round(l.Duration/60, 1),
			StartTime:       c.clock(l.StartTime),
			EndTime:         c.clock(l.EndTime),
			RentedBike:      l.RentedBike,
			FromBixiStation: l.From.BikeRentalStation,
			ToBixiStation:   l.To.BikeRentalStation,
		}
		if l.Route != nil {
			leg.Route = l.Route.ShortName
			leg.RouteLongName = l.Route.LongName
		}
		if l.Trip != nil {
			leg.Headsign = l.Trip.TripHeadsign
		}
		out.Legs = append(out.Legs, leg)
	}
	return out
}

// clock renders epoch milliseconds as HH:MM, or nil when unset.
func (c *Client) clock(ms int64) *string {
	if ms == 0 {
		return nil
	}
	s := time.UnixMilli(ms).In(c.location).Format("15:04")
	return &s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildQuery(req PlanRequest) string {
	modes := req.Modes
	if len(modes) == 0 {
		modes = ResolveModes(TripModeAll)
	}
	return fmt.Sprintf(`
{
  plan(
    from: {lat: %s, lon: %s}
    to: {lat: %s, lon: %s}
    transportModes: [%s]
    numItineraries: %d
    date: "%s"
    arriveBy: %t
  ) {
    itineraries {
      startTime
      endTime
      duration
      walkDistance
      legs {
        mode
        startTime
        endTime
        duration
        distance
        rentedBike
        from {
          name
          lat
          lon
          bikeRentalStation {
            stationId
            name
            bikesAvailable
            spacesAvailable
          }
        }
        to {
          name
          lat
          lon
          bikeRentalStation {
            stationId
            name
            bikesAvailable
            spacesAvailable
          }
        }
        route {
          shortName
          longName
        }
        trip {
          tripHeadsign
        }
      }
    }
  }
}`,
		formatFloat(req.FromLat), formatFloat(req.FromLon),
		formatFloat(req.ToLat), formatFloat(req.ToLon),
		joinModes(modes), numItineraries,
		req.Time.Format("2006-01-02T15:04:05"), req.ArriveBy)
}
