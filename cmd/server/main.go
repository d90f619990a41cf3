package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dpup/steppe.guide/server/internal/cache"
	"github.com/dpup/steppe.guide/server/internal/catalog"
	"github.com/dpup/steppe.guide/server/internal/clients/google"
	"github.com/dpup/steppe.guide/server/internal/config"
	"github.com/dpup/steppe.guide/server/internal/metrics"
	"github.com/dpup/steppe.guide/server/internal/services"
)

func main() {
	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	guideCatalog, err := catalog.Load(appConfig.Catalog.Path)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	// Background work logs through the same base context
	ctx := logging.EnsureLogger(context.Background())

	// Initialize cache and drop expired transit stop lookups in the background
	cacheInstance := cache.NewCache()
	if err := metrics.RegisterCacheGauges(prometheus.DefaultRegisterer, cacheInstance); err != nil {
		log.Fatalf("Failed to register cache metrics: %v", err)
	}
	if appConfig.Routing.TransitStopsTTL > 0 {
		cacheInstance.StartPeriodicCleanup(ctx, appConfig.Routing.TransitStopsTTL)
	}

	// Initialize external API clients
	googleClient := google.NewClient(google.Config{
		APIKey:           appConfig.Google.APIKey,
		BaseURL:          appConfig.Google.BaseURL,
		Language:         appConfig.Google.Language,
		Region:           appConfig.Google.Region,
		QueriesPerSecond: appConfig.Google.QueriesPerSecond,
		HTTPTimeout:      appConfig.Google.HTTPTimeout,
	})
	var transitStops services.TransitStopFinder
	if googleClient.Enabled() {
		transitStops = googleClient
	} else {
		log.Printf("Google API key not configured, every route will be synthesized locally")
	}

	routeService := services.NewRouteService(googleClient, transitStops, cacheInstance, guideCatalog, &appConfig.Routing)
	apiHandler := services.NewHTTPHandler(routeService)

	// Keep transit stop lookups around attractions warm
	if transitStops != nil {
		periodicRefresh := services.NewPeriodicRefreshService(routeService, appConfig.Routing.TransitRefreshInterval)
		if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
			log.Printf("Failed to start periodic refresh: %v", err)
		}
	}

	log.Printf("Steppe Guide API Server starting")
	log.Printf("Regions: %d, attractions: %d, tours: %d",
		len(guideCatalog.Regions), len(guideCatalog.Attractions), len(guideCatalog.Tours))
	log.Printf("Provider timeout: %s, inside-region threshold: %.0f km",
		appConfig.Routing.ProviderTimeout, appConfig.Routing.InsideRegionKm)

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithGRPCReflection(),
		prefab.WithHTTPHandlerFunc("/api/v1/", apiHandler.ServeHTTP),
		prefab.WithHTTPHandlerFunc("/metrics", metrics.Handler().ServeHTTP),
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// loadConfig layers prefab.yaml and PF__ environment variables over the
// defaults, then validates the result.
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	// Unmarshal specific sections from Prefab's config using exact key paths
	if err := prefab.Config.Unmarshal("routing", &appConfig.Routing); err != nil {
		log.Fatalf("Failed to unmarshal routing section: %v", err)
	}

	if err := prefab.Config.Unmarshal("google", &appConfig.Google); err != nil {
		log.Fatalf("Failed to unmarshal google section: %v", err)
	}

	if err := prefab.Config.Unmarshal("catalog", &appConfig.Catalog); err != nil {
		log.Fatalf("Failed to unmarshal catalog section: %v", err)
	}

	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return appConfig
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>steppe.guide</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">steppe.guide</span>

Routing API for the Astana and Pavlodar tourism guide. Routes come from
Google Directions when available and are synthesized locally otherwise.

<span class="header">API Endpoints:</span>

Routing:
  GET /api/v1/route?origin=lat,lng&destination=lat,lng     - Route between two points
  GET /api/v1/attractions/{id}/route?from=lat,lng          - Route to an attraction
  GET /api/v1/attractions/route?from=lat,lng&ids=a,b,c     - Route through several attractions
  GET /api/v1/tours/{id}/route?from=lat,lng                - Route a curated tour
  GET /api/v1/tours/route?from=lat,lng&ids=t1,t2           - Route several tours at once
      add &format=geojson or &format=kml for map layers

Discovery:
  <a href="/api/v1/regions">GET /api/v1/regions</a>                                    - Regions and categories
  <a href="/api/v1/tours">GET /api/v1/tours</a>                                      - Curated tours
  GET /api/v1/attractions/nearby?at=lat,lng               - Attractions near a location
  GET /api/v1/transit/nearby?at=lat,lng                   - Transit stops near a location

Operations:
  <a href="/metrics">GET /metrics</a>                                           - Prometheus metrics

<span class="header">Example Usage:</span>
  curl "/api/v1/route?origin=51.1283,71.4306&destination=51.1326,71.4064&mode=walking"
  curl "/api/v1/tours/ast_route_1/route?from=51.1283,71.4306&format=geojson"

Server time: ` + time.Now().UTC().Format(time.RFC3339) + `
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
