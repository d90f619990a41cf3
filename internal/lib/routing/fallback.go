package routing

import (
	"fmt"
	"math"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

const (
	// DefaultPointsPerSegment is how many interpolation steps each straight
	// fallback segment gets.
	DefaultPointsPerSegment = 50

	// DefaultBoundsPadding is the padding in degrees around fallback bounds.
	DefaultBoundsPadding = 0.005
)

// FallbackOptions tunes the straight-line route synthesizer.
type FallbackOptions struct {
	PointsPerSegment int
	BoundsPadding    float64
}

// DefaultFallbackOptions returns the stock synthesizer settings.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		PointsPerSegment: DefaultPointsPerSegment,
		BoundsPadding:    DefaultBoundsPadding,
	}
}

// BuildFallbackRoute synthesizes a route from straight interpolated lines
// through every point of the request. It performs no I/O and is
// deterministic for a given request. The caller is expected to have
// validated the request coordinates.
func BuildFallbackRoute(req RouteRequest, opts FallbackOptions) RouteResult {
	if opts.PointsPerSegment <= 0 {
		opts.PointsPerSegment = DefaultPointsPerSegment
	}
	if opts.BoundsPadding < 0 {
		opts.BoundsPadding = DefaultBoundsPadding
	}

	mode := req.TravelMode
	if !mode.IsValid() {
		mode = Walking
	}

	waypointOrder := make([]int, len(req.Waypoints))
	for i := range waypointOrder {
		waypointOrder[i] = i
	}
	if req.Optimize && len(req.Waypoints) > 1 {
		waypointOrder = NearestNeighborOrder(req.Origin, req.Waypoints)
	}

	points := make([]geo.Point, 0, len(req.Waypoints)+2)
	points = append(points, req.Origin)
	for _, i := range waypointOrder {
		points = append(points, req.Waypoints[i])
	}
	points = append(points, req.Destination)

	coordinates := make([]geo.Point, 0, (len(points)-1)*opts.PointsPerSegment+1)
	instructions := make([]Instruction, 0, len(points))

	for i := 0; i < len(points)-1; i++ {
		start, end := points[i], points[i+1]

		segment := geo.Interpolate(start, end, opts.PointsPerSegment)
		if i > 0 {
			// The junction point was emitted as the previous segment's end.
			segment = segment[1:]
		}
		coordinates = append(coordinates, segment...)

		segmentKm := geo.Haversine(start, end)
		verb := "Continue moving"
		if i == 0 {
			verb = "Start moving"
		}
		instructions = append(instructions, Instruction{
			Text:          fmt.Sprintf("%s %s", verb, cardinalDirection(geo.Bearing(start, end))),
			DistanceLabel: formatDistanceKm(segmentKm),
			DurationLabel: formatMinutes(EstimateTravelTime(segmentKm, mode)),
			At:            start,
		})
	}

	instructions = append(instructions, Instruction{
		Text:          "Arrive at destination",
		DistanceLabel: "0 m",
		DurationLabel: "0 min",
		At:            req.Destination,
	})

	// Bounds and distance come from the real points; interpolation only
	// smooths the drawn path.
	bounds, _ := geo.BoundingBox(points, opts.BoundsPadding)
	distanceKm := TotalRouteDistance(points)

	return RouteResult{
		Coordinates:     coordinates,
		DistanceKm:      distanceKm,
		DurationMinutes: EstimateTravelTime(distanceKm, mode),
		Instructions:    instructions,
		Bounds:          bounds,
		TravelMode:      mode,
		WaypointOrder:   waypointOrder,
		IsFallback:      true,
	}
}

// cardinalDirection quantizes a bearing into one of four compass words.
func cardinalDirection(bearing float64) string {
	switch {
	case bearing >= 315 || bearing < 45:
		return "north"
	case bearing < 135:
		return "east"
	case bearing < 225:
		return "south"
	default:
		return "west"
	}
}

func formatDistanceKm(km float64) string {
	return fmt.Sprintf("%.1f km", km)
}

func formatMinutes(minutes float64) string {
	return fmt.Sprintf("%d min", int(math.Round(minutes)))
}
