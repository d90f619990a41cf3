package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/clients/google"
	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/regions"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.ServeHTTP(rec, req.WithContext(logging.EnsureLogger(t.Context())))
	return rec
}

func TestHTTP_Route(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/route?origin=52.2870,76.9670&destination=51.1283,71.4306&mode=driving")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Route.IsFallback)
	assert.Equal(t, routing.Driving, body.Route.TravelMode)
	assert.NotEmpty(t, body.Route.ID)
	assert.Equal(t, routing.Hard, body.Analysis.Difficulty)
	assert.Positive(t, body.Analysis.EstimatedCostKZT)
}

func TestHTTP_RouteWaypoints(t *testing.T) {
	provider := &MockDirectionsProvider{}
	provider.On("Directions", mock.Anything, mock.Anything).Return(nil, &google.DirectionsError{Cause: google.CauseTimeout})
	h := NewHTTPHandler(newTestService(t, provider, nil))

	rec := serve(t, h, "/api/v1/route?origin=51.1283,71.4306&destination=51.1326,71.4064&waypoints=51.1801,71.4460|51.1278,71.4691&optimize=true")
	require.Equal(t, http.StatusOK, rec.Code)

	req := provider.Calls[0].Arguments.Get(1).(routing.RouteRequest)
	assert.Len(t, req.Waypoints, 2)
	assert.True(t, req.Optimize)
	assert.Equal(t, routing.Walking, req.TravelMode)
}

func TestHTTP_RouteFormats(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/route?origin=51.1283,71.4306&destination=51.1326,71.4064&format=geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)

	rec = serve(t, h, "/api/v1/attractions/ast002/route?from=51.1283,71.4306&format=kml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.google-earth.kml+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Хан Шатыр")
}

func TestHTTP_RouteErrors(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing origin", "/api/v1/route?destination=51.1,71.4", http.StatusBadRequest},
		{"bad latitude", "/api/v1/route?origin=abc,71.4&destination=51.1,71.4", http.StatusBadRequest},
		{"out of range", "/api/v1/route?origin=95,71.4&destination=51.1,71.4", http.StatusBadRequest},
		{"unknown mode", "/api/v1/route?origin=51.1,71.4&destination=51.2,71.4&mode=teleport", http.StatusBadRequest},
		{"bad optimize", "/api/v1/route?origin=51.1,71.4&destination=51.2,71.4&optimize=maybe", http.StatusBadRequest},
		{"unknown attraction", "/api/v1/attractions/zzz/route?from=51.1,71.4", http.StatusNotFound},
		{"unknown tour", "/api/v1/tours/zzz/route?from=51.1,71.4", http.StatusNotFound},
		{"missing attraction ids", "/api/v1/attractions/route?from=51.1,71.4&ids=,", http.StatusBadRequest},
		{"unknown attraction in list", "/api/v1/attractions/route?from=51.1,71.4&ids=ast001,zzz", http.StatusNotFound},
		{"too many attraction ids", "/api/v1/attractions/route?from=51.1,71.4&ids=" + strings.Repeat("ast001,", 26), http.StatusBadRequest},
		{"missing tour ids", "/api/v1/tours/route?from=51.1,71.4", http.StatusBadRequest},
		{"unknown tour in list", "/api/v1/tours/route?from=51.1,71.4&ids=pvl_route_1,zzz", http.StatusNotFound},
		{"bad radius", "/api/v1/attractions/nearby?at=51.1,71.4&radius_km=-3", http.StatusBadRequest},
		{"bad transit radius", "/api/v1/transit/nearby?at=51.1,71.4&radius_m=x", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.target)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHTTP_TourRoute(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/tours/ast_route_1/route?from=51.1283,71.4306")
	require.Equal(t, http.StatusOK, rec.Code)

	var plan TourPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, "ast_route_1", plan.Tour.ID)
	assert.Equal(t, routing.Transit, plan.Route.TravelMode)
	assert.Len(t, plan.Attractions, 3)
	assert.Equal(t, 150, plan.Analysis.EstimatedCostKZT)
}

func TestHTTP_MultiAttractionRoute(t *testing.T) {
	provider := &MockDirectionsProvider{}
	provider.On("Directions", mock.Anything, mock.Anything).Return(nil, &google.DirectionsError{Cause: google.CauseTimeout})
	h := NewHTTPHandler(newTestService(t, provider, nil))

	rec := serve(t, h, "/api/v1/attractions/route?from=52.30,76.95&ids=ast001,%20ast003,ast002&mode=driving")
	require.Equal(t, http.StatusOK, rec.Code)

	var body RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Route.IsFallback)
	assert.Equal(t, routing.Driving, body.Route.TravelMode)

	req := provider.Calls[0].Arguments.Get(1).(routing.RouteRequest)
	assert.Equal(t, khanShatyr, req.Destination)
	assert.Len(t, req.Waypoints, 2)
	assert.Equal(t, baiterek, req.Waypoints[0])
	assert.True(t, req.Optimize)

	rec = serve(t, h, "/api/v1/attractions/route?from=52.30,76.95&ids=ast001,ast002&format=geojson")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
}

func TestHTTP_MultiTourRoute(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/tours/route?from=52.30,76.95&ids=pvl_route_2,ast_route_1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Plans []TourPlan `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Plans, 2)
	assert.Equal(t, "pvl_route_2", body.Plans[0].Tour.ID)
	assert.Equal(t, routing.Driving, body.Plans[0].Route.TravelMode)
	assert.Equal(t, "ast_route_1", body.Plans[1].Tour.ID)
	assert.Equal(t, routing.Transit, body.Plans[1].Route.TravelMode)
	for _, plan := range body.Plans {
		assert.True(t, plan.Route.IsFallback)
	}
}

func TestHTTP_RequestWithoutLogger(t *testing.T) {
	provider := &MockDirectionsProvider{}
	provider.On("Directions", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	h := NewHTTPHandler(newTestService(t, provider, nil))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/route?origin=52.30,76.95&destination=51.1283,71.4306", nil))
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Route.IsFallback)
	assert.Equal(t, "transport", body.Route.FallbackCause)
}

func TestHTTP_NearbyAttractions(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/attractions/nearby?at=52.2870,76.9670&categories=nature,%20adventure")
	require.Equal(t, http.StatusOK, rec.Code)

	var body regions.Classification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Region)
	assert.Equal(t, "pavlodar", body.Region.ID)
	assert.True(t, body.IsNearbyRegion)
	assert.Len(t, body.Attractions, 2)
}

func TestHTTP_NearbyTransit(t *testing.T) {
	finder := &MockTransitStopFinder{}
	finder.On("NearbyTransitStops", mock.Anything, geo.Point{Latitude: 51.1283, Longitude: 71.4306}, 250).
		Return([]google.TransitStop{{PlaceID: "p1", Name: "Байтерек"}}, nil)
	h := NewHTTPHandler(newTestService(t, nil, finder))

	rec := serve(t, h, "/api/v1/transit/nearby?at=51.1283,71.4306&radius_m=250")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stops []google.TransitStop `json:"stops"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Stops, 1)
	assert.Equal(t, "p1", body.Stops[0].PlaceID)
}

func TestHTTP_Listings(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := serve(t, h, "/api/v1/regions")
	require.Equal(t, http.StatusOK, rec.Code)
	var regionsBody struct {
		Regions []regions.Region `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regionsBody))
	assert.Len(t, regionsBody.Regions, 2)

	rec = serve(t, h, "/api/v1/tours?region=pavlodar")
	require.Equal(t, http.StatusOK, rec.Code)
	var toursBody struct {
		Tours []struct {
			ID string `json:"id"`
		} `json:"tours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toursBody))
	assert.Len(t, toursBody.Tours, 2)
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	h := NewHTTPHandler(newTestService(t, nil, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/regions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
