package tools

import (
	"context"
	"fmt"

	"github.com/xiaot623/tripchat/internal/transit"
)

// AlertsTool reports significant STM delays derived from the live feed.
type AlertsTool struct {
	feed FeedSource
}

// NewAlertsTool creates the transit alerts tool.
func NewAlertsTool(f FeedSource) *AlertsTool {
	return &AlertsTool{feed: f}
}

func (t *AlertsTool) Definition() Definition {
	return Definition{
		Name:        "get_stm_alerts",
		Description: "Get current STM service alerts, delays, and disruptions for metro and bus lines. Use this BEFORE planning trips to inform users of potential issues.",
		Parameters: ObjectSchema(map[string]Property{
			"route_type": {
				Type:        TypeString,
				Description: "Filter by route type: 'metro', 'bus', or 'all' (default)",
				Enum:        []string{transit.RouteTypeMetro, transit.RouteTypeBus, transit.FilterAll},
			},
		}),
	}
}

type alertsResult struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Alerts  []transit.Alert `json:"alerts"`
	Filter  string          `json:"filter"`
}

func (t *AlertsTool) Call(ctx context.Context, args Args) (any, error) {
	if t.feed == nil {
		return nil, fmt.Errorf("transit feed is not configured")
	}
	filter := args.StringOr("route_type", transit.FilterAll)

	feed, err := t.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	alerts := transit.BuildAlerts(transit.FeedSamples(feed), filter)
	return alertsResult{Success: true, Count: len(alerts), Alerts: alerts, Filter: filter}, nil
}
