// Package otp is a client for the OpenTripPlanner GraphQL planning API.
package otp

import (
	"strings"
)

// TransportMode is one entry of the OTP transportModes argument.
type TransportMode struct {
	Mode      string
	Qualifier string
}

// String renders the mode as a GraphQL input object literal.
func (m TransportMode) String() string {
	if m.Qualifier == "" {
		return "{mode: " + m.Mode + "}"
	}
	return "{mode: " + m.Mode + ", qualifier: " + m.Qualifier + "}"
}

// Trip mode names accepted by ResolveModes.
const (
	TripModeAll         = "ALL"
	TripModeTransit     = "TRANSIT"
	TripModeTransitBixi = "TRANSIT_BIXI"
	TripModeWalk        = "WALK"
	TripModeBicycle     = "BICYCLE"
	TripModeNoBus       = "NO_BUS"
	TripModeNoMetro     = "NO_METRO"
)

var (
	modeWalk     = TransportMode{Mode: "WALK"}
	modeTransit  = TransportMode{Mode: "TRANSIT"}
	modeBus      = TransportMode{Mode: "BUS"}
	modeRail     = TransportMode{Mode: "RAIL"}
	modeSubway   = TransportMode{Mode: "SUBWAY"}
	modeBikeRent = TransportMode{Mode: "BICYCLE", Qualifier: "RENT"}
)

// ResolveModes maps a user-facing trip mode to OTP transport modes.
// Matching is case-insensitive; unknown or empty names resolve like ALL.
func ResolveModes(mode string) []TransportMode {
	switch strings.ToUpper(mode) {
	case TripModeWalk:
		return []TransportMode{modeWalk}
	case TripModeBicycle:
		return []TransportMode{modeBikeRent, modeWalk}
	case TripModeTransit:
		return []TransportMode{modeWalk, modeTransit}
	case TripModeNoBus:
		return []TransportMode{modeWalk, modeRail, modeSubway, modeBikeRent}
	case TripModeNoMetro:
		return []TransportMode{modeWalk, modeBus, modeBikeRent}
	default:
		return []TransportMode{modeWalk, modeTransit, modeBikeRent}
	}
}

// joinModes renders modes as the comma separated body of a GraphQL list.
func joinModes(modes []TransportMode) string {
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}
