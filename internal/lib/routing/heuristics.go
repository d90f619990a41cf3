package routing

import (
	"errors"
	"math"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

// ErrUnknownTravelMode is returned when a request names a mode outside the
// supported set.
var ErrUnknownTravelMode = errors.New("unknown travel mode")

// Average speeds in km/h used to estimate durations without a provider.
var travelSpeeds = map[TravelMode]float64{
	Walking:   4.5,
	Bicycling: 15,
	Driving:   40,
	Transit:   20,
}

// SpeedKmh returns the average speed for mode, falling back to walking pace
// for unknown modes.
func SpeedKmh(mode TravelMode) float64 {
	if speed, ok := travelSpeeds[mode]; ok {
		return speed
	}
	return travelSpeeds[Walking]
}

// EstimateTravelTime converts a distance into minutes at the mode's average
// speed. Negative or non-finite distances estimate to zero.
func EstimateTravelTime(distanceKm float64, mode TravelMode) float64 {
	if distanceKm <= 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0
	}
	return distanceKm / SpeedKmh(mode) * 60
}

// TotalRouteDistance sums the great-circle length of consecutive legs.
func TotalRouteDistance(points []geo.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geo.Haversine(points[i-1], points[i])
	}
	return total
}

// NearestNeighborOrder returns the visiting order of waypoints as indices
// into the input, greedily picking the closest unvisited waypoint each time.
// Exact ties go to the waypoint that appears first in the input.
func NearestNeighborOrder(start geo.Point, waypoints []geo.Point) []int {
	order := make([]int, 0, len(waypoints))
	visited := make([]bool, len(waypoints))
	current := start

	for range waypoints {
		best := -1
		bestDistance := math.Inf(1)
		for i, wp := range waypoints {
			if visited[i] {
				continue
			}
			// NaN never compares less, so unvalidated input still gets an index.
			if d := geo.Haversine(current, wp); best == -1 || d < bestDistance {
				best, bestDistance = i, d
			}
		}
		visited[best] = true
		order = append(order, best)
		current = waypoints[best]
	}

	return order
}

// OrderWaypointsNearestNeighbor returns start, the waypoints in greedy
// nearest-neighbour order, and end when it is non-nil. This is an O(n²)
// heuristic, not an optimal tour.
func OrderWaypointsNearestNeighbor(start geo.Point, waypoints []geo.Point, end *geo.Point) []geo.Point {
	points := make([]geo.Point, 0, len(waypoints)+2)
	points = append(points, start)
	for _, i := range NearestNeighborOrder(start, waypoints) {
		points = append(points, waypoints[i])
	}
	if end != nil {
		points = append(points, *end)
	}
	return points
}
