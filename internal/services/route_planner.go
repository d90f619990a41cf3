package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dpup/steppe.guide/server/internal/cache"
	"github.com/dpup/steppe.guide/server/internal/catalog"
	"github.com/dpup/steppe.guide/server/internal/clients/google"
	"github.com/dpup/steppe.guide/server/internal/config"
	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/regions"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
	"github.com/dpup/steppe.guide/server/internal/metrics"
)

// DirectionsProvider computes a route through an external service.
// Implementations return an error rather than a partial result.
type DirectionsProvider interface {
	Directions(ctx context.Context, req routing.RouteRequest) (*routing.RouteResult, error)
}

// TransitStopFinder looks up public transport stops near a point.
type TransitStopFinder interface {
	NearbyTransitStops(ctx context.Context, location geo.Point, radiusMeters int) ([]google.TransitStop, error)
}

// RouteService plans routes to attractions and tours. Provider failures
// never surface to callers: they get a locally synthesized route with
// IsFallback set instead.
type RouteService struct {
	provider   DirectionsProvider
	stops      TransitStopFinder
	cache      *cache.Cache
	catalog    *catalog.Catalog
	classifier regions.Classifier
	config     *config.RoutingConfig
}

// TourPlan is a routed curated tour.
type TourPlan struct {
	Tour        catalog.Tour         `json:"tour"`
	Attractions []regions.Attraction `json:"attractions"`
	Route       routing.RouteResult  `json:"route"`
	Analysis    routing.Analysis     `json:"analysis"`
}

// NewRouteService creates a new RouteService. provider and stops may be nil,
// in which case every route is a fallback and no transit stops are found.
func NewRouteService(provider DirectionsProvider, stops TransitStopFinder, cache *cache.Cache, catalog *catalog.Catalog, config *config.RoutingConfig) *RouteService {
	return &RouteService{
		provider:   provider,
		stops:      stops,
		cache:      cache,
		catalog:    catalog,
		classifier: regions.NewClassifier(config.InsideRegionKm),
		config:     config,
	}
}

// Catalog exposes the reference tables the service routes over.
func (s *RouteService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Route plans a route for req. Invalid input is rejected with
// codes.InvalidArgument; every other outcome is a route.
func (s *RouteService) Route(ctx context.Context, req routing.RouteRequest) (routing.RouteResult, error) {
	ctx = logging.EnsureLogger(ctx)

	if req.TravelMode == "" {
		req.TravelMode = routing.Walking
	}
	if err := req.Validate(); err != nil {
		return routing.RouteResult{}, status.Errorf(codes.InvalidArgument, "invalid route request: %v", err)
	}

	routeID := uuid.NewString()

	result, err := s.fetchDirections(ctx, req)
	if err != nil {
		label := failureLabel(err)
		logFields := []any{
			"route_id", routeID,
			"cause", label,
			"code", status.Code(err).String(),
			"error", err,
		}
		var dirErr *google.DirectionsError
		if errors.As(err, &dirErr) {
			logFields = append(logFields, "provider_status", dirErr.Status, "http_status", dirErr.HTTPStatus)
		}
		logging.Warnw(ctx, "Directions provider failed, using fallback route", logFields...)

		metrics.RoutesFallback.WithLabelValues(label).Inc()
		fallback := routing.BuildFallbackRoute(req, s.fallbackOptions())
		fallback.FallbackCause = label
		result = &fallback
	}

	result.ID = routeID
	if result.TravelMode == "" {
		result.TravelMode = req.TravelMode
	}

	logging.Debugw(ctx, "Route planned",
		"route_id", routeID,
		"distance_km", result.DistanceKm,
		"duration_minutes", result.DurationMinutes,
		"points", len(result.Coordinates),
		"fallback", result.IsFallback)

	return *result, nil
}

// fetchDirections calls the provider under the configured timeout and
// rejects results that break the route contract.
func (s *RouteService) fetchDirections(ctx context.Context, req routing.RouteRequest) (*routing.RouteResult, error) {
	if s.provider == nil {
		return nil, &google.DirectionsError{Cause: google.CauseDisabled, Message: "no directions provider configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.provider.Directions(callCtx, req)
	metrics.DirectionsDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		err = checkProviderResult(result)
	}
	if err == nil {
		pinEndpoints(result, req)
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.As(err, new(*google.DirectionsError)) {
			err = &google.DirectionsError{Cause: google.CauseTimeout, Message: "provider call exceeded timeout", Err: err}
		}
		metrics.DirectionsRequests.WithLabelValues(failureLabel(err)).Inc()
		return nil, err
	}

	metrics.DirectionsRequests.WithLabelValues("ok").Inc()
	return result, nil
}

func checkProviderResult(result *routing.RouteResult) error {
	malformed := func(msg string) error {
		return &google.DirectionsError{Cause: google.CauseMalformed, Message: msg}
	}
	switch {
	case result == nil:
		return malformed("provider returned no result")
	case len(result.Coordinates) == 0:
		return malformed("provider route has no coordinates")
	case !finiteNonNegative(result.DistanceKm) || !finiteNonNegative(result.DurationMinutes):
		return malformed("provider route has invalid distance or duration")
	}
	for _, p := range result.Coordinates {
		if !p.Valid() {
			return malformed("provider route has invalid coordinates")
		}
	}
	return nil
}

// pinEndpoints makes the path start at the requested origin and end at the
// requested destination.
func pinEndpoints(result *routing.RouteResult, req routing.RouteRequest) {
	if !result.Coordinates[0].Equal(req.Origin) {
		result.Coordinates = append([]geo.Point{req.Origin}, result.Coordinates...)
	}
	if last := result.Coordinates[len(result.Coordinates)-1]; !last.Equal(req.Destination) {
		result.Coordinates = append(result.Coordinates, req.Destination)
	}
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func failureLabel(err error) string {
	var dirErr *google.DirectionsError
	if errors.As(err, &dirErr) {
		return dirErr.Label()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(google.CauseTimeout)
	}
	return string(google.CauseTransport)
}

func (s *RouteService) fallbackOptions() routing.FallbackOptions {
	return routing.FallbackOptions{
		PointsPerSegment: s.config.FallbackPointsPerSegment,
		BoundsPadding:    s.config.FallbackBoundsPadding,
	}
}

// RouteToAttraction routes from the user's position to one attraction.
func (s *RouteService) RouteToAttraction(ctx context.Context, from geo.Point, attractionID string, mode routing.TravelMode) (routing.RouteResult, error) {
	attraction, err := s.lookupAttraction(attractionID)
	if err != nil {
		return routing.RouteResult{}, err
	}

	return s.Route(ctx, routing.RouteRequest{
		Origin:      from,
		Destination: attraction.Coordinates,
		TravelMode:  mode,
	})
}

// MultiPointRoute visits several attractions, ending at the last one. The
// provider may reorder the intermediate stops.
func (s *RouteService) MultiPointRoute(ctx context.Context, from geo.Point, attractionIDs []string, mode routing.TravelMode) (routing.RouteResult, error) {
	switch len(attractionIDs) {
	case 0:
		return routing.RouteResult{}, status.Error(codes.InvalidArgument, "at least one attraction is required")
	case 1:
		return s.RouteToAttraction(ctx, from, attractionIDs[0], mode)
	}

	points := make([]geo.Point, 0, len(attractionIDs))
	for _, id := range attractionIDs {
		a, err := s.lookupAttraction(id)
		if err != nil {
			return routing.RouteResult{}, err
		}
		points = append(points, a.Coordinates)
	}

	return s.Route(ctx, routing.RouteRequest{
		Origin:      from,
		Destination: points[len(points)-1],
		Waypoints:   points[:len(points)-1],
		TravelMode:  mode,
		Optimize:    true,
	})
}

// PlanTour routes a curated tour in its curated order. An empty mode uses
// the tour's own travel mode.
func (s *RouteService) PlanTour(ctx context.Context, from geo.Point, tourID string, mode routing.TravelMode) (TourPlan, error) {
	tour, err := s.catalog.Tour(tourID)
	if err != nil {
		return TourPlan{}, status.Error(codes.NotFound, err.Error())
	}
	attractions, err := s.catalog.TourAttractions(tour)
	if err != nil {
		return TourPlan{}, status.Error(codes.NotFound, err.Error())
	}

	if mode == "" {
		mode = tour.TravelMode
	}

	points := make([]geo.Point, len(attractions))
	for i, a := range attractions {
		points[i] = a.Coordinates
	}

	route, err := s.Route(ctx, routing.RouteRequest{
		Origin:      from,
		Destination: points[len(points)-1],
		Waypoints:   points[:len(points)-1],
		TravelMode:  mode,
	})
	if err != nil {
		return TourPlan{}, err
	}

	return TourPlan{
		Tour:        tour,
		Attractions: attractions,
		Route:       route,
		Analysis:    routing.Analyze(route),
	}, nil
}

// PlanTours plans several tours concurrently, at most
// config.MaxConcurrentTours at a time. Plans come back in request order.
func (s *RouteService) PlanTours(ctx context.Context, from geo.Point, tourIDs []string, mode routing.TravelMode) ([]TourPlan, error) {
	plans := make([]TourPlan, len(tourIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.MaxConcurrentTours))

	for i, id := range tourIDs {
		g.Go(func() error {
			plan, err := s.PlanTour(gctx, from, id, mode)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// NearbyAttractions classifies the user's position against the catalog
// regions and returns the attractions worth showing. An empty categories
// list keeps every attraction.
func (s *RouteService) NearbyAttractions(ctx context.Context, at geo.Point, radiusKm float64, categories []string) (regions.Classification, error) {
	if !at.Valid() {
		return regions.Classification{}, status.Error(codes.InvalidArgument, geo.ErrInvalidCoordinate.Error())
	}
	if radiusKm <= 0 {
		radiusKm = s.config.NearbyRadiusKm
	}

	ctx = logging.EnsureLogger(ctx)
	candidates := regions.FilterByCategories(s.catalog.Attractions, categories)
	classification, err := s.classifier.Classify(ctx, at, candidates, s.catalog.Regions, radiusKm)
	if err != nil {
		return regions.Classification{}, status.Errorf(codes.FailedPrecondition, "failed to classify location: %v", err)
	}
	return classification, nil
}

// NearbyTransitStops lists transit stops around a point. Lookups are cached
// for config.TransitStopsTTL; provider failures yield an empty list.
func (s *RouteService) NearbyTransitStops(ctx context.Context, at geo.Point, radiusMeters int) ([]google.TransitStop, error) {
	if !at.Valid() {
		return nil, status.Error(codes.InvalidArgument, geo.ErrInvalidCoordinate.Error())
	}
	ctx = logging.EnsureLogger(ctx)
	radiusMeters = s.transitRadius(radiusMeters)

	key := cache.TransitStopsKey(at, radiusMeters)

	var cached []google.TransitStop
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		logging.Warnw(ctx, "Cache error", "key", key, "error", err)
	}
	if found {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	if s.stops == nil {
		return []google.TransitStop{}, nil
	}

	stops, err := s.stops.NearbyTransitStops(ctx, at, radiusMeters)
	if err != nil {
		logging.Warnw(ctx, "Transit stop lookup failed", "error", err, "code", status.Code(err).String())
		return []google.TransitStop{}, nil
	}

	if err := s.cache.Set(key, stops, s.config.TransitStopsTTL, "places"); err != nil {
		logging.Warnw(ctx, "Failed to cache transit stops", "key", key, "error", err)
	}
	return stops, nil
}

// transitStopsFresh reports whether stops around at are cached and unexpired.
func (s *RouteService) transitStopsFresh(at geo.Point, radiusMeters int) bool {
	return !s.cache.IsStale(cache.TransitStopsKey(at, s.transitRadius(radiusMeters)))
}

func (s *RouteService) transitRadius(radiusMeters int) int {
	if radiusMeters <= 0 {
		return s.config.TransitStopsRadius
	}
	return radiusMeters
}

func (s *RouteService) lookupAttraction(id string) (regions.Attraction, error) {
	a, err := s.catalog.Attraction(id)
	if err != nil {
		return regions.Attraction{}, status.Error(codes.NotFound, err.Error())
	}
	return a, nil
}
