package google

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

const directionsPath = "/maps/api/directions/json"

// DirectionsResponse is the subset of the Directions web service response
// the client reads.
type DirectionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Routes       []DirectionsRoute `json:"routes"`
}

type DirectionsRoute struct {
	Summary          string          `json:"summary"`
	OverviewPolyline EncodedPolyline `json:"overview_polyline"`
	Legs             []DirectionsLeg `json:"legs"`
	Bounds           LatLngBounds    `json:"bounds"`
	WaypointOrder    []int           `json:"waypoint_order"`
}

type EncodedPolyline struct {
	Points string `json:"points"`
}

type DirectionsLeg struct {
	Distance TextValue        `json:"distance"`
	Duration TextValue        `json:"duration"`
	Steps    []DirectionsStep `json:"steps"`
}

type DirectionsStep struct {
	HTMLInstructions string    `json:"html_instructions"`
	Distance         TextValue `json:"distance"`
	Duration         TextValue `json:"duration"`
	StartLocation    LatLng    `json:"start_location"`
	TravelMode       string    `json:"travel_mode"`
}

// TextValue pairs a localized label with its value in meters or seconds.
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) Point() geo.Point {
	return geo.Point{Latitude: l.Lat, Longitude: l.Lng}
}

type LatLngBounds struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// Directions asks the provider for a route through req. The result's
// coordinates always begin at the origin and end at the destination. Any
// failure is returned as a *DirectionsError; the caller decides whether to
// fall back.
func (c *Client) Directions(ctx context.Context, req routing.RouteRequest) (*routing.RouteResult, error) {
	mode := req.TravelMode
	if !mode.IsValid() {
		mode = routing.Walking
	}

	ctx, span := tracer.Start(ctx, "google.Directions", trace.WithAttributes(
		attribute.String("travel_mode", string(mode)),
		attribute.Int("waypoints", len(req.Waypoints)),
	))
	defer span.End()

	result, err := c.directions(ctx, req, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("points", len(result.Coordinates)))
	return result, nil
}

func (c *Client) directions(ctx context.Context, req routing.RouteRequest, mode routing.TravelMode) (*routing.RouteResult, error) {
	if !c.Enabled() {
		return nil, &DirectionsError{Cause: CauseDisabled, Message: "no API key configured"}
	}

	var response DirectionsResponse
	if err := c.getJSON(ctx, directionsPath, c.directionsParams(req, mode), &response); err != nil {
		return nil, err
	}

	if response.Status != StatusOK {
		return nil, providerError(response.Status, response.ErrorMessage)
	}
	if len(response.Routes) == 0 {
		return nil, &DirectionsError{Cause: CauseMalformed, Status: response.Status, Message: "no routes found in response"}
	}

	return processRoute(req, mode, response.Routes[0])
}

func (c *Client) directionsParams(req routing.RouteRequest, mode routing.TravelMode) url.Values {
	params := url.Values{}
	params.Set("origin", req.Origin.String())
	params.Set("destination", req.Destination.String())
	params.Set("mode", strings.ToLower(string(mode)))
	params.Set("language", c.language)
	params.Set("region", c.region)

	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.Optimize {
			parts = append(parts, "optimize:true")
		}
		for _, wp := range req.Waypoints {
			parts = append(parts, wp.String())
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}
	return params
}

// processRoute converts the first provider route into a RouteResult.
func processRoute(req routing.RouteRequest, mode routing.TravelMode, route DirectionsRoute) (*routing.RouteResult, error) {
	if route.OverviewPolyline.Points == "" {
		return nil, &DirectionsError{Cause: CauseMalformed, Status: StatusOK, Message: "route has no overview polyline"}
	}
	points, err := geo.DecodePolyline(route.OverviewPolyline.Points)
	if err != nil {
		return nil, &DirectionsError{Cause: CauseMalformed, Status: StatusOK, Message: "invalid overview polyline", Err: err}
	}

	// The provider snaps to the road network; pin the path to the requested
	// endpoints so the drawn line meets the markers.
	if !points[0].Equal(req.Origin) {
		points = append([]geo.Point{req.Origin}, points...)
	}
	if !points[len(points)-1].Equal(req.Destination) {
		points = append(points, req.Destination)
	}

	var meters, seconds float64
	var instructions []routing.Instruction
	for _, leg := range route.Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value

		for _, step := range leg.Steps {
			at := step.StartLocation.Point()
			if !at.Valid() {
				continue
			}
			instructions = append(instructions, routing.Instruction{
				Text:          StripHTML(step.HTMLInstructions),
				DistanceLabel: step.Distance.Text,
				DurationLabel: step.Duration.Text,
				At:            at,
			})
		}
	}
	if instructions == nil {
		instructions = []routing.Instruction{}
	}

	bounds := geo.Bounds{
		Southwest: route.Bounds.Southwest.Point(),
		Northeast: route.Bounds.Northeast.Point(),
	}
	if !bounds.Valid() || !bounds.Contains(req.Origin) || !bounds.Contains(req.Destination) {
		bounds, _ = geo.BoundingBox(points, 0)
	}

	waypointOrder := route.WaypointOrder
	if len(waypointOrder) != len(req.Waypoints) {
		waypointOrder = make([]int, len(req.Waypoints))
		for i := range waypointOrder {
			waypointOrder[i] = i
		}
	}

	return &routing.RouteResult{
		Coordinates:     points,
		DistanceKm:      meters / 1000,
		DurationMinutes: seconds / 60,
		Instructions:    instructions,
		Bounds:          bounds,
		TravelMode:      mode,
		WaypointOrder:   waypointOrder,
	}, nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup and entities from a provider instruction.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
