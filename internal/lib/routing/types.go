package routing

import (
	"strings"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

// TravelMode selects the speed model and the provider routing profile.
type TravelMode string

const (
	Walking   TravelMode = "WALKING"
	Driving   TravelMode = "DRIVING"
	Transit   TravelMode = "TRANSIT"
	Bicycling TravelMode = "BICYCLING"
)

// IsValid reports whether m is a known travel mode.
func (m TravelMode) IsValid() bool {
	switch m {
	case Walking, Driving, Transit, Bicycling:
		return true
	}
	return false
}

// ParseTravelMode accepts any casing of a known mode. Empty input yields
// Walking; anything else unknown is reported as not ok.
func ParseTravelMode(s string) (TravelMode, bool) {
	if s == "" {
		return Walking, true
	}
	m := TravelMode(strings.ToUpper(strings.TrimSpace(s)))
	return m, m.IsValid()
}

// RouteRequest describes a single routing call. Waypoints are visited in
// the given order unless Optimize is set.
type RouteRequest struct {
	Origin      geo.Point   `json:"origin"`
	Destination geo.Point   `json:"destination"`
	Waypoints   []geo.Point `json:"waypoints,omitempty"`
	TravelMode  TravelMode  `json:"travel_mode"`
	Optimize    bool        `json:"optimize,omitempty"`
}

// Points returns the full ordered sequence origin, waypoints..., destination.
func (r RouteRequest) Points() []geo.Point {
	points := make([]geo.Point, 0, len(r.Waypoints)+2)
	points = append(points, r.Origin)
	points = append(points, r.Waypoints...)
	return append(points, r.Destination)
}

// Validate checks every coordinate in the request and the travel mode.
func (r RouteRequest) Validate() error {
	for _, p := range r.Points() {
		if !p.Valid() {
			return geo.ErrInvalidCoordinate
		}
	}
	if r.TravelMode != "" && !r.TravelMode.IsValid() {
		return ErrUnknownTravelMode
	}
	return nil
}

// Instruction is a single turn-by-turn step.
type Instruction struct {
	Text          string    `json:"text"`
	DistanceLabel string    `json:"distance_label"`
	DurationLabel string    `json:"duration_label"`
	At            geo.Point `json:"at"`
}

// RouteResult is the rendered route handed to a map surface. Results are
// produced per request and never cached.
type RouteResult struct {
	ID              string        `json:"id,omitempty"`
	Coordinates     []geo.Point   `json:"coordinates"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	Instructions    []Instruction `json:"instructions"`
	Bounds          geo.Bounds    `json:"bounds"`
	TravelMode      TravelMode    `json:"travel_mode"`
	WaypointOrder   []int         `json:"waypoint_order,omitempty"`
	IsFallback      bool          `json:"is_fallback"`
	FallbackCause   string        `json:"fallback_cause,omitempty"`
}
