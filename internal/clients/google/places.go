package google

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

const nearbySearchPath = "/maps/api/place/nearbysearch/json"

// TransitStop is a public transport stop near a query point.
type TransitStop struct {
	PlaceID    string    `json:"place_id"`
	Name       string    `json:"name"`
	Vicinity   string    `json:"vicinity,omitempty"`
	Location   geo.Point `json:"location"`
	DistanceKm float64   `json:"distance_km"`
	Types      []string  `json:"types"`
	Rating     float64   `json:"rating"`
}

type nearbySearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
	Types  []string `json:"types"`
	Rating float64  `json:"rating"`
}

// NearbyTransitStops lists transit stations within radiusMeters of
// location, closest first. ZERO_RESULTS yields an empty list.
func (c *Client) NearbyTransitStops(ctx context.Context, location geo.Point, radiusMeters int) ([]TransitStop, error) {
	ctx, span := tracer.Start(ctx, "google.NearbyTransitStops")
	defer span.End()
	span.SetAttributes(attribute.Int("radius_m", radiusMeters))

	stops, err := c.nearbyTransitStops(ctx, location, radiusMeters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return stops, nil
}

func (c *Client) nearbyTransitStops(ctx context.Context, location geo.Point, radiusMeters int) ([]TransitStop, error) {
	if !location.Valid() {
		return nil, geo.ErrInvalidCoordinate
	}
	if !c.Enabled() {
		return nil, &DirectionsError{Cause: CauseDisabled, Message: "no API key configured"}
	}

	params := url.Values{
		"location": {location.String()},
		"radius":   {strconv.Itoa(radiusMeters)},
		"type":     {"transit_station"},
		"language": {c.language},
	}

	var response nearbySearchResponse
	if err := c.getJSON(ctx, nearbySearchPath, params, &response); err != nil {
		return nil, err
	}

	switch response.Status {
	case StatusOK:
	case StatusZeroResults:
		return []TransitStop{}, nil
	default:
		return nil, providerError(response.Status, response.ErrorMessage)
	}

	stops := make([]TransitStop, 0, len(response.Results))
	for _, place := range response.Results {
		p := place.Geometry.Location.Point()
		if !p.Valid() {
			continue
		}
		stops = append(stops, TransitStop{
			PlaceID:    place.PlaceID,
			Name:       place.Name,
			Vicinity:   place.Vicinity,
			Location:   p,
			DistanceKm: geo.Haversine(location, p),
			Types:      place.Types,
			Rating:     place.Rating,
		})
	}

	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].DistanceKm < stops[j].DistanceKm
	})
	return stops, nil
}
