// Package photon is a client for the Photon OpenStreetMap geocoder.
package photon

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

// MaxLimit caps the number of results requested from Photon.
const MaxLimit = 5

// Client queries a Photon instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a geocoder client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Place is one geocoding match.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Type      string  `json:"type"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	Country   *string `json:"country"`
	OSMType   *string `json:"osm_type"`
	OSMID     *int64  `json:"osm_id"`
}

type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name    *string `json:"name"`
			Type    *string `json:"type"`
			City    *string `json:"city"`
			State   *string `json:"state"`
			Country *string `json:"country"`
			OSMType *string `json:"osm_type"`
			OSMID   *int64  `json:"osm_id"`
		} `json:"properties"`
	} `json:"features"`
}

// Search geocodes query and returns at most limit places (capped at MaxLimit).
// Features without a coordinate pair are skipped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to Photon geocoder at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Photon error [%d]: %s", resp.StatusCode, string(body))
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	places := make([]Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		coords := f.Geometry.Coordinates
		if len(coords) < 2 {
			continue
		}
		p := f.Properties
		place := Place{
			Name:      query,
			Latitude:  coords[1],
			Longitude: coords[0],
			Type:      "unknown",
			City:      p.City,
			State:     p.State,
			Country:   p.Country,
			OSMType:   p.OSMType,
			OSMID:     p.OSMID,
		}
		if p.Name != nil {
			place.Name = *p.Name
		}
		if p.Type != nil {
			place.Type = *p.Type
		}
		places = append(places, place)
	}
	return places, nil
}
