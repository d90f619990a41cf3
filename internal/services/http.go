package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dpup/prefab/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dpup/steppe.guide/server/internal/lib/export"
	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
	"github.com/dpup/steppe.guide/server/internal/metrics"
)

// Response formats accepted by the route endpoints.
const (
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
	FormatKML     = "kml"
)

// maxRouteIDs caps the attractions or tours one request may route through.
const maxRouteIDs = 25

// RouteResponse is the JSON body of the route endpoints.
type RouteResponse struct {
	Route    routing.RouteResult `json:"route"`
	Analysis routing.Analysis    `json:"analysis"`
}

// NewHTTPHandler exposes the route service as JSON over HTTP under /api/v1/.
func NewHTTPHandler(svc *RouteService) http.Handler {
	h := &httpHandler{svc: svc}
	mux := http.NewServeMux()

	handle := func(pattern, route string, fn http.HandlerFunc) {
		mux.Handle(pattern, metrics.Middleware(route, fn))
	}

	handle("GET /api/v1/attractions/route", "/api/v1/attractions/route", h.multiAttractionRoute)
	handle("GET /api/v1/tours/route", "/api/v1/tours/route", h.multiTourRoute)

	handle("GET /api/v1/route", "/api/v1/route", h.route)
	handle("GET /api/v1/attractions/nearby", "/api/v1/attractions/nearby", h.nearbyAttractions)
	handle("GET /api/v1/attractions/{id}/route", "/api/v1/attractions/{id}/route", h.attractionRoute)
	handle("GET /api/v1/tours", "/api/v1/tours", h.listTours)
	handle("GET /api/v1/tours/{id}/route", "/api/v1/tours/{id}/route", h.tourRoute)
	handle("GET /api/v1/regions", "/api/v1/regions", h.listRegions)
	handle("GET /api/v1/transit/nearby", "/api/v1/transit/nearby", h.nearbyTransit)

	return withLogger(mux)
}

// withLogger makes sure handlers can log even when the server did not
// attach a logger to the request context.
func withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(logging.EnsureLogger(r.Context())))
	})
}

type httpHandler struct {
	svc *RouteService
}

func (h *httpHandler) route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var req routing.RouteRequest
	var err error
	if req.Origin, err = parsePoint(q.Get("origin")); err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "origin: %v", err))
		return
	}
	if req.Destination, err = parsePoint(q.Get("destination")); err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "destination: %v", err))
		return
	}
	if req.Waypoints, err = parsePoints(q.Get("waypoints")); err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "waypoints: %v", err))
		return
	}
	if req.TravelMode, err = parseMode(q.Get("mode")); err != nil {
		writeError(w, r, err)
		return
	}
	if v := q.Get("optimize"); v != "" {
		if req.Optimize, err = strconv.ParseBool(v); err != nil {
			writeError(w, r, status.Errorf(codes.InvalidArgument, "optimize: %v", err))
			return
		}
	}

	result, err := h.svc.Route(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRoute(w, r, "Route", result)
}

func (h *httpHandler) attractionRoute(w http.ResponseWriter, r *http.Request) {
	from, err := parsePoint(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "from: %v", err))
		return
	}
	mode, err := parseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	id := r.PathValue("id")
	result, err := h.svc.RouteToAttraction(r.Context(), from, id, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := id
	if a, err := h.svc.Catalog().Attraction(id); err == nil {
		name = a.Name
	}
	writeRoute(w, r, name, result)
}

func (h *httpHandler) multiAttractionRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parsePoint(q.Get("from"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "from: %v", err))
		return
	}
	mode, err := parseMode(q.Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := parseIDs(q.Get("ids"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.MultiPointRoute(r.Context(), from, ids, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRoute(w, r, "Attractions", result)
}

func (h *httpHandler) multiTourRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parsePoint(q.Get("from"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "from: %v", err))
		return
	}
	mode, err := parseMode(q.Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ids, err := parseIDs(q.Get("ids"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	plans, err := h.svc.PlanTours(r.Context(), from, ids, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"plans": plans})
}

func (h *httpHandler) tourRoute(w http.ResponseWriter, r *http.Request) {
	from, err := parsePoint(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "from: %v", err))
		return
	}
	mode, err := parseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := h.svc.PlanTour(r.Context(), from, r.PathValue("id"), mode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch format(r) {
	case FormatJSON:
		writeJSON(w, r, http.StatusOK, plan)
	default:
		writeRoute(w, r, plan.Tour.Name, plan.Route)
	}
}

func (h *httpHandler) nearbyAttractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	at, err := parsePoint(q.Get("at"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "at: %v", err))
		return
	}

	var radiusKm float64
	if v := q.Get("radius_km"); v != "" {
		if radiusKm, err = strconv.ParseFloat(v, 64); err != nil || radiusKm <= 0 {
			writeError(w, r, status.Errorf(codes.InvalidArgument, "radius_km: must be a positive number"))
			return
		}
	}

	var categories []string
	if v := q.Get("categories"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	classification, err := h.svc.NearbyAttractions(r.Context(), at, radiusKm, categories)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, classification)
}

func (h *httpHandler) nearbyTransit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	at, err := parsePoint(q.Get("at"))
	if err != nil {
		writeError(w, r, status.Errorf(codes.InvalidArgument, "at: %v", err))
		return
	}

	var radius int
	if v := q.Get("radius_m"); v != "" {
		if radius, err = strconv.Atoi(v); err != nil || radius <= 0 {
			writeError(w, r, status.Errorf(codes.InvalidArgument, "radius_m: must be a positive integer"))
			return
		}
	}

	stops, err := h.svc.NearbyTransitStops(r.Context(), at, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"stops": stops})
}

func (h *httpHandler) listRegions(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Catalog()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"regions":    c.Regions,
		"categories": c.Categories,
	})
}

func (h *httpHandler) listTours(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"tours": h.svc.Catalog().ToursInRegion(r.URL.Query().Get("region")),
	})
}

func format(r *http.Request) string {
	switch f := strings.ToLower(r.URL.Query().Get("format")); f {
	case FormatGeoJSON, FormatKML:
		return f
	default:
		return FormatJSON
	}
}

func writeRoute(w http.ResponseWriter, r *http.Request, name string, result routing.RouteResult) {
	switch format(r) {
	case FormatGeoJSON:
		fc := export.GeoJSON(result)
		data, err := fc.MarshalJSON()
		if err != nil {
			writeError(w, r, fmt.Errorf("failed to encode GeoJSON: %w", err))
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		if _, err := w.Write(data); err != nil {
			logging.Warnw(r.Context(), "Failed to write response", "error", err)
		}
	case FormatKML:
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		if err := export.WriteKML(w, name, result); err != nil {
			logging.Warnw(r.Context(), "Failed to write response", "error", err)
		}
	default:
		writeJSON(w, r, http.StatusOK, RouteResponse{
			Route:    result,
			Analysis: routing.Analyze(result),
		})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warnw(r.Context(), "Failed to write response", "error", err)
	}
}

// writeError maps the gRPC code carried by err onto an HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := status.Code(err)
	httpStatus := httpStatusFromCode(code)
	if httpStatus >= http.StatusInternalServerError {
		logging.Errorw(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}

	msg := err.Error()
	if s, ok := status.FromError(err); ok {
		msg = s.Message()
	}
	writeJSON(w, r, httpStatus, map[string]any{
		"error": msg,
		"code":  code.String(),
	})
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

var errMissingPoint = errors.New("coordinate is required")

// parsePoint reads a "lat,lng" pair.
func parsePoint(s string) (geo.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return geo.Point{}, errMissingPoint
	}
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("%q is not a lat,lng pair", s)
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid latitude %q", lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid longitude %q", lng)
	}
	return geo.NewPoint(latitude, longitude)
}

// parsePoints reads a "|" separated list of "lat,lng" pairs.
func parsePoints(s string) ([]geo.Point, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	points := make([]geo.Point, 0, len(parts))
	for _, part := range parts {
		p, err := parsePoint(part)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parseIDs reads a comma separated list of catalog IDs.
func parseIDs(s string) ([]string, error) {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	switch {
	case len(ids) == 0:
		return nil, status.Error(codes.InvalidArgument, "ids: at least one id is required")
	case len(ids) > maxRouteIDs:
		return nil, status.Errorf(codes.InvalidArgument, "ids: at most %d ids are allowed", maxRouteIDs)
	}
	return ids, nil
}

// parseMode returns "" for an empty value so callers can apply their own
// default.
func parseMode(s string) (routing.TravelMode, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	mode, ok := routing.ParseTravelMode(s)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "mode: %v %q", routing.ErrUnknownTravelMode, s)
	}
	return mode, nil
}
