// Package transit turns real-time transit feed data into service alerts.
package transit

import (
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// SignificantDelaySeconds is the threshold a delay must exceed, in absolute
// value, to be counted.
const SignificantDelaySeconds = 120

// Route type tags and filter values.
const (
	RouteTypeMetro = "metro"
	RouteTypeBus   = "bus"
	FilterAll      = "all"
)

// Alert effect and cause tags.
const (
	EffectSignificantDelays = "SIGNIFICANT_DELAYS"
	EffectOther             = "OTHER_EFFECT"
	CauseUnknown            = "UNKNOWN_CAUSE"
)

var metroRoutes = map[string]struct{}{
	"1": {},
	"2": {},
	"4": {},
	"5": {},
}

// DelaySample is one observed stop arrival delay on a route.
type DelaySample struct {
	RouteID      string
	DelaySeconds int
}

// Alert summarizes the significant delays observed on one route.
type Alert struct {
	ID              string   `json:"id"`
	Header          string   `json:"header"`
	Description     string   `json:"description"`
	Cause           string   `json:"cause"`
	Effect          string   `json:"effect"`
	AffectedRoutes  []string `json:"affected_routes"`
	RouteTypes      []string `json:"route_types"`
	AvgDelaySeconds int      `json:"avg_delay_seconds"`
	MaxDelaySeconds int      `json:"max_delay_seconds"`
	NumDelayedStops int      `json:"num_delayed_stops"`
}

// RouteTypeOf classifies a route id as metro or bus.
func RouteTypeOf(routeID string) string {
	if _, ok := metroRoutes[routeID]; ok {
		return RouteTypeMetro
	}
	return RouteTypeBus
}

// BuildAlerts groups significant delays by route and renders one alert per
// route, in the order routes are first seen. The filter is "metro", "bus" or
// "all"; any other value behaves like "all".
func BuildAlerts(samples []DelaySample, filter string) []Alert {
	var order []string
	delays := make(map[string][]int)
	for _, s := range samples {
		if abs(s.DelaySeconds) <= SignificantDelaySeconds {
			continue
		}
		if _, seen := delays[s.RouteID]; !seen {
			order = append(order, s.RouteID)
		}
		delays[s.RouteID] = append(delays[s.RouteID], s.DelaySeconds)
	}

	alerts := make([]Alert, 0, len(order))
	for _, routeID := range order {
		routeType := RouteTypeOf(routeID)
		if (filter == RouteTypeMetro || filter == RouteTypeBus) && filter != routeType {
			continue
		}
		alerts = append(alerts, buildAlert(routeID, routeType, delays[routeID]))
	}
	return alerts
}

func buildAlert(routeID, routeType string, list []int) Alert {
	sum, maxDelay := 0, list[0]
	for _, d := range list {
		sum += d
		if d > maxDelay {
			maxDelay = d
		}
	}
	mean := float64(sum) / float64(len(list))
	minutes := int(mean / 60)
	maxMinutes := int(float64(maxDelay) / 60)

	alert := Alert{
		ID:              "delay_" + routeID,
		Cause:           CauseUnknown,
		AffectedRoutes:  []string{routeID},
		RouteTypes:      []string{routeType},
		AvgDelaySeconds: int(mean),
		MaxDelaySeconds: maxDelay,
		NumDelayedStops: len(list),
	}
	if mean > 0 {
		alert.Header = fmt.Sprintf("Delays on route %s", routeID)
		alert.Description = fmt.Sprintf("Average delay: %d minutes (max: %d minutes)", minutes, maxMinutes)
		alert.Effect = EffectSignificantDelays
	} else {
		alert.Header = fmt.Sprintf("Route %s running ahead of schedule", routeID)
		alert.Description = fmt.Sprintf("Average: %d minutes early", abs(minutes))
		alert.Effect = EffectOther
	}
	return alert
}

// FeedSamples flattens the trip updates of a GTFS-RT feed into delay samples.
// Trip updates without a route id and stop updates without an arrival delay
// are skipped.
func FeedSamples(feed *gtfs.FeedMessage) []DelaySample {
	var samples []DelaySample
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil || tu.GetTrip() == nil || tu.GetTrip().RouteId == nil {
			continue
		}
		routeID := tu.GetTrip().GetRouteId()
		for _, stu := range tu.GetStopTimeUpdate() {
			arrival := stu.GetArrival()
			if arrival == nil || arrival.Delay == nil {
				continue
			}
			samples = append(samples, DelaySample{RouteID: routeID, DelaySeconds: int(arrival.GetDelay())})
		}
	}
	return samples
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
