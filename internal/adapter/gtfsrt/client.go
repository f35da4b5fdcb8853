// Package gtfsrt fetches and decodes GTFS-Realtime protobuf feeds.
package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// ErrMissingAPIKey is returned when the feed requires a key and none is set.
var ErrMissingAPIKey = errors.New("STM_API_KEY not set. Get your API key at: https://portail.developpeurs.stm.info/apihub")

// Client downloads a GTFS-RT feed authenticated with an apikey header.
type Client struct {
	feedURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a feed client.
func NewClient(feedURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		feedURL:    feedURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and decodes the feed.
func (c *Client) Fetch(ctx context.Context) (*gtfs.FeedMessage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch STM alerts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch STM alerts: status %d", resp.StatusCode)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to decode GTFS-RT feed: %w", err)
	}
	return feed, nil
}
