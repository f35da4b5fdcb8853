package openmeteo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCurrentWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "45.5017", q.Get("latitude"))
		assert.Equal(t, "-73.5673", q.Get("longitude"))
		assert.Equal(t, "auto", q.Get("timezone"))
		assert.Equal(t, currentFields, q.Get("current"))
		fmt.Fprint(w, `{"timezone":"America/Toronto","current_units":{"temperature_2m":"°F"},
			"current":{"temperature_2m":21.4,"relative_humidity_2m":60,"apparent_temperature":20.1,"precipitation":0,"weather_code":3,"wind_speed_10m":12.5}}`)
	}))
	defer server.Close()

	cur, err := NewClient(server.URL, time.Second).CurrentWeather(context.Background(), 45.5017, -73.5673)
	require.NoError(t, err)

	require.NotNil(t, cur.Temperature)
	assert.Equal(t, 21.4, *cur.Temperature)
	assert.Equal(t, "°F", cur.TemperatureUnit)
	assert.Equal(t, "km/h", cur.WindSpeedUnit)
	assert.Equal(t, 20.1, *cur.FeelsLike)
	assert.Equal(t, 60.0, *cur.Humidity)
	assert.Equal(t, 3, *cur.WeatherCode)
	assert.Equal(t, "America/Toronto", cur.Timezone)
	assert.Equal(t, "Lat: 45.5017, Lon: -73.5673", cur.Location)
}

func TestClientCurrentWeatherError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).CurrentWeather(context.Background(), 100, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Open-Meteo error [400]")
}
