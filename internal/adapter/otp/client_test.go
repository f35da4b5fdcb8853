package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planResponse = `{"data":{"plan":{"itineraries":[{
  "startTime":1718280000000,"endTime":1718281500000,"duration":1500,"walkDistance":412.3456,"transfers":0,
  "legs":[
    {"mode":"BICYCLE","startTime":1718280000000,"endTime":1718280900000,"duration":900,"distance":2500.556,"rentedBike":true,
     "from":{"name":"Origin","lat":45.5,"lon":-73.6,"bikeRentalStation":{"stationId":"s1","name":"Station A","bikesAvailable":4,"spacesAvailable":10}},
     "to":{"name":"Station B","lat":45.51,"lon":-73.57,"bikeRentalStation":null},
     "route":null,"trip":null},
    {"mode":"BUS","startTime":1718280900000,"endTime":1718281500000,"duration":600,"distance":3000,"rentedBike":false,
     "from":{"name":"Station B","lat":45.51,"lon":-73.57},
     "to":{"name":"Destination","lat":45.52,"lon":-73.55},
     "route":{"shortName":"24","longName":"Sherbrooke"},"trip":{"tripHeadsign":"Est"}}
  ]}]}}}`

func TestClientPlan(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		query = body.Query
		fmt.Fprint(w, planResponse)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	when := time.Date(2024, 6, 13, 8, 0, 0, 0, time.UTC)
	result, err := client.Plan(context.Background(), PlanRequest{
		FromLat: 45.5, FromLon: -73.6, ToLat: 45.52, ToLon: -73.55,
		Modes:    ResolveModes("BICYCLE"),
		Time:     when,
		ArriveBy: true,
	})
	require.NoError(t, err)

	assert.Contains(t, query, "from: {lat: 45.5, lon: -73.6}")
	assert.Contains(t, query, "transportModes: [{mode: BICYCLE, qualifier: RENT}, {mode: WALK}]")
	assert.Contains(t, query, `date: "2024-06-13T08:00:00"`)
	assert.Contains(t, query, "arriveBy: true")
	assert.Contains(t, query, "numItineraries: 5")

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, Point{Lat: 45.5, Lon: -73.6}, result.From)

	it := result.Itineraries[0]
	assert.Equal(t, 25.0, it.DurationMinutes)
	assert.Equal(t, 412.35, it.WalkDistance)
	require.Len(t, it.Legs, 2)

	bike := it.Legs[0]
	assert.Equal(t, 2500.56, bike.Distance)
	assert.Equal(t, 15.0, bike.DurationMinutes)
	require.NotNil(t, bike.StartTime)
	assert.Equal(t, "08:00", *bike.StartTime)
	assert.Equal(t, "08:15", *bike.EndTime)
	require.NotNil(t, bike.FromBixiStation)
	assert.Equal(t, "Station A", bike.FromBixiStation.Name)
	assert.Nil(t, bike.ToBixiStation)
	assert.Nil(t, bike.Route)
	assert.True(t, bike.RentedBike)

	bus := it.Legs[1]
	require.NotNil(t, bus.Route)
	assert.Equal(t, "24", *bus.Route)
	assert.Equal(t, "Sherbrooke", *bus.RouteLongName)
	assert.Equal(t, "Est", *bus.Headsign)
}

func TestClientPlanErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantMsg string
	}{
		{"graphql error", `{"errors":[{"message":"bad coordinates"}]}`, http.StatusOK, "GraphQL error: bad coordinates"},
		{"no itineraries", `{"data":{"plan":{"itineraries":[]}}}`, http.StatusOK, "No routes found for this trip"},
		{"no plan", `{"data":{}}`, http.StatusOK, "No routes found for this trip"},
		{"http error", `oops`, http.StatusBadGateway, "OpenTripPlanner error [502]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).Plan(context.Background(), PlanRequest{Time: time.Now()})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("no routes is a sentinel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"plan":{"itineraries":[]}}}`)
		}))
		defer server.Close()
		_, err := NewClient(server.URL, time.Second).Plan(context.Background(), PlanRequest{Time: time.Now()})
		assert.True(t, errors.Is(err, ErrNoRoutes))
	})
}
