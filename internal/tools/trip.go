package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/xiaot623/tripchat/internal/adapter/otp"
)

var tripTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// TripTool plans itineraries between two coordinates.
type TripTool struct {
	planner TripPlanner
	now     func() time.Time
	loc     *time.Location
}

// NewTripTool creates the trip planning tool. A nil now uses time.Now.
func NewTripTool(p TripPlanner, now func() time.Time) *TripTool {
	if now == nil {
		now = time.Now
	}
	return &TripTool{planner: p, now: now, loc: montreal()}
}

func (t *TripTool) Definition() Definition {
	return Definition{
		Name:        "plan_trip",
		Description: "Plan a trip from one location to another using various modes of transportation (transit, walking, biking, driving). Returns detailed itineraries with step-by-step directions. IMPORTANT: Coordinates must be obtained using geocode_location tool first - do NOT use hardcoded coordinates for destinations.",
		Parameters: ObjectSchema(map[string]Property{
			"from_lat": {Type: TypeNumber, Description: "Starting location latitude (use user's current location from message context)"},
			"from_lon": {Type: TypeNumber, Description: "Starting location longitude (use user's current location from message context)"},
			"to_lat":   {Type: TypeNumber, Description: "Destination latitude"},
			"to_lon":   {Type: TypeNumber, Description: "Destination longitude"},
			"mode": {
				Type:        TypeString,
				Description: "Transportation mode - choose based on user preferences: ALL (default - all modes including transit, walk, BIXI), TRANSIT (transit+walk, no bikes), WALK (walking only), BICYCLE (BIXI bike-share only), NO_BUS (metro/REM only, excludes buses), NO_METRO (bus only, excludes metro/REM). Default to ALL unless user expresses preference.",
				Enum:        []string{"ALL", "TRANSIT", "WALK", "BICYCLE", "NO_BUS", "NO_METRO"},
			},
			"arrive_by": {
				Type:        TypeBoolean,
				Description: "If true, the time represents arrival time. If false (default), it represents departure time",
			},
			"time": {
				Type:        TypeString,
				Description: "Departure or arrival time in ISO format (e.g., '2024-01-15T14:30:00'). If not provided, uses current time.",
			},
			"max_walk_distance": {
				Type:        TypeNumber,
				Description: "Maximum walking distance in meters (default: 800)",
			},
		}, "from_lat", "from_lon", "to_lat", "to_lon"),
	}
}

func (t *TripTool) Call(ctx context.Context, args Args) (any, error) {
	if t.planner == nil {
		return nil, fmt.Errorf("trip planner is not configured")
	}
	return t.planner.Plan(ctx, otp.PlanRequest{
		FromLat:  args.Float("from_lat"),
		FromLon:  args.Float("from_lon"),
		ToLat:    args.Float("to_lat"),
		ToLon:    args.Float("to_lon"),
		Modes:    otp.ResolveModes(args.StringOr("mode", otp.TripModeAll)),
		Time:     t.parseTime(args.String("time")),
		ArriveBy: args.BoolOr("arrive_by", false),
	})
}

// parseTime accepts RFC 3339 or a zoneless ISO timestamp. Anything else,
// including an empty value, means now in Montreal.
func (t *TripTool) parseTime(s string) time.Time {
	if s != "" {
		for _, layout := range tripTimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts
			}
		}
	}
	return t.now().In(t.loc)
}
