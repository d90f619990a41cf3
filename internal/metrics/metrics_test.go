package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/cache"
)

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware("/api/v1/test", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/test", "418"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/test", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/test", "418"))
	assert.Equal(t, before+1, after)
}

func TestHandler_ExposesRoutingMetrics(t *testing.T) {
	RoutesFallback.WithLabelValues("timeout").Inc()
	DirectionsRequests.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `steppe_routes_fallback_total{cause="timeout"}`))
	assert.True(t, strings.Contains(body, `steppe_directions_requests_total{outcome="ok"}`))
}

func TestRegisterCacheGauges(t *testing.T) {
	c := cache.NewCache()
	require.NoError(t, c.Set("fresh-1", "a", time.Hour, "test"))
	require.NoError(t, c.Set("fresh-2", "b", time.Hour, "test"))
	require.NoError(t, c.Set("expired", "c", -time.Second, "test"))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, RegisterCacheGauges(reg, c))
	assert.Equal(t, map[string]float64{"fresh": 2, "stale": 1}, cacheGauges(t, reg))

	// Values are read at scrape time
	require.NoError(t, c.Set("fresh-3", "d", time.Hour, "test"))
	assert.Equal(t, map[string]float64{"fresh": 3, "stale": 1}, cacheGauges(t, reg))

	// Registering twice against the same registry is an error
	assert.Error(t, RegisterCacheGauges(reg, c))
}

func cacheGauges(t *testing.T, reg prometheus.Gatherer) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	byState := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "steppe_cache_entries" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "state" {
					byState[lp.GetValue()] = m.GetGauge().GetValue()
				}
			}
		}
	}
	return byState
}
