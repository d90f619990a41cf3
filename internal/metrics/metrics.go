package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dpup/steppe.guide/server/internal/cache"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steppe",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "steppe",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
	}, []string{"method", "route"})

	// Routing metrics
	DirectionsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steppe",
		Name:      "directions_requests_total",
		Help:      "Directions provider calls by outcome (ok or the failure label)",
	}, []string{"outcome"})

	DirectionsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steppe",
		Name:      "directions_duration_seconds",
		Help:      "Latency of directions provider calls, failures included",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
	})

	RoutesFallback = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steppe",
		Name:      "routes_fallback_total",
		Help:      "Routes synthesized locally because the provider failed",
	}, []string{"cause"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steppe",
		Name:      "cache_requests_total",
		Help:      "Cache lookups by result (hit or miss)",
	}, []string{"result"})
)

// CacheStatser is implemented by *cache.Cache.
type CacheStatser interface {
	Stats() cache.Stats
}

// RegisterCacheGauges exposes fresh and stale cache entry counts as
// steppe_cache_entries{state}. Values are read from c at scrape time.
func RegisterCacheGauges(reg prometheus.Registerer, c CacheStatser) error {
	gauges := map[string]func(cache.Stats) int{
		"fresh": func(s cache.Stats) int { return s.FreshEntries },
		"stale": func(s cache.Stats) int { return s.StaleEntries },
	}
	for state, value := range gauges {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "steppe",
			Name:        "cache_entries",
			Help:        "Cached entries by state",
			ConstLabels: prometheus.Labels{"state": state},
		}, func() float64 { return float64(value(c.Stats())) })
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request metrics. route is a fixed label so path
// parameters do not explode cardinality.
func Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus /metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
