package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the complete server configuration. Each section is
// loaded from the matching key in prefab.yaml or PF__ environment variables.
type Config struct {
	Routing RoutingConfig `yaml:"routing" koanf:"routing"`
	Google  GoogleConfig  `yaml:"google" koanf:"google"`
	Catalog CatalogConfig `yaml:"catalog" koanf:"catalog"`
}

// RoutingConfig tunes route planning and region classification.
type RoutingConfig struct {
	// Distance from a region reference point that counts as inside it.
	InsideRegionKm float64 `yaml:"inside_region_km" koanf:"inside_region_km"`

	// Interpolation steps per straight fallback segment.
	FallbackPointsPerSegment int `yaml:"fallback_points_per_segment" koanf:"fallback_points_per_segment"`

	// Degrees of padding around fallback route bounds.
	FallbackBoundsPadding float64 `yaml:"fallback_bounds_padding" koanf:"fallback_bounds_padding"`

	// Upper bound on a single directions provider call.
	ProviderTimeout time.Duration `yaml:"provider_timeout" koanf:"provider_timeout"`

	// Search radius when the user is outside every region.
	NearbyRadiusKm float64 `yaml:"nearby_radius_km" koanf:"nearby_radius_km"`

	// Tours planned in parallel by a single request.
	MaxConcurrentTours int `yaml:"max_concurrent_tours" koanf:"max_concurrent_tours"`

	TransitStopsTTL    time.Duration `yaml:"transit_stops_ttl" koanf:"transit_stops_ttl"`
	TransitStopsRadius int           `yaml:"transit_stops_radius_m" koanf:"transit_stops_radius_m"`

	// How often stops around every attraction are re-fetched. Zero disables.
	TransitRefreshInterval time.Duration `yaml:"transit_refresh_interval" koanf:"transit_refresh_interval"`
}

// GoogleConfig holds Google Maps web service settings. An empty APIKey
// disables the provider and every route is synthesized locally.
type GoogleConfig struct {
	APIKey           string        `yaml:"api_key" koanf:"api_key"`
	BaseURL          string        `yaml:"base_url" koanf:"base_url"`
	Language         string        `yaml:"language" koanf:"language"`
	Region           string        `yaml:"region" koanf:"region"`
	QueriesPerSecond float64       `yaml:"queries_per_second" koanf:"queries_per_second"`
	HTTPTimeout      time.Duration `yaml:"http_timeout" koanf:"http_timeout"`
}

// CatalogConfig points at the region and attraction tables. An empty Path
// uses the catalog compiled into the binary.
type CatalogConfig struct {
	Path string `yaml:"path" koanf:"path"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Routing: RoutingConfig{
			InsideRegionKm:           50,
			FallbackPointsPerSegment: 50,
			FallbackBoundsPadding:    0.005,
			ProviderTimeout:          8 * time.Second,
			NearbyRadiusKm:           200,
			MaxConcurrentTours:       4,
			TransitStopsTTL:          10 * time.Minute,
			TransitStopsRadius:       500,
		},
		Google: GoogleConfig{
			BaseURL:          "https://maps.googleapis.com",
			Language:         "ru",
			Region:           "kz",
			QueriesPerSecond: 10,
			HTTPTimeout:      30 * time.Second,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	r := c.Routing
	if r.InsideRegionKm <= 0 {
		errs = append(errs, fmt.Errorf("routing.inside_region_km must be positive, got %v", r.InsideRegionKm))
	}
	if r.FallbackPointsPerSegment < 1 {
		errs = append(errs, fmt.Errorf("routing.fallback_points_per_segment must be at least 1, got %d", r.FallbackPointsPerSegment))
	}
	if r.FallbackBoundsPadding < 0 {
		errs = append(errs, fmt.Errorf("routing.fallback_bounds_padding must not be negative, got %v", r.FallbackBoundsPadding))
	}
	if r.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("routing.provider_timeout must be positive, got %s", r.ProviderTimeout))
	}
	if r.NearbyRadiusKm <= 0 {
		errs = append(errs, fmt.Errorf("routing.nearby_radius_km must be positive, got %v", r.NearbyRadiusKm))
	}
	if r.MaxConcurrentTours < 1 {
		errs = append(errs, fmt.Errorf("routing.max_concurrent_tours must be at least 1, got %d", r.MaxConcurrentTours))
	}
	if r.TransitStopsTTL < 0 {
		errs = append(errs, fmt.Errorf("routing.transit_stops_ttl must not be negative, got %s", r.TransitStopsTTL))
	}
	if r.TransitRefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("routing.transit_refresh_interval must not be negative, got %s", r.TransitRefreshInterval))
	}
	if r.TransitStopsRadius <= 0 || r.TransitStopsRadius > 50000 {
		errs = append(errs, fmt.Errorf("routing.transit_stops_radius_m must be in (0, 50000], got %d", r.TransitStopsRadius))
	}

	g := c.Google
	if u, err := url.Parse(g.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("google.base_url must be an absolute URL, got %q", g.BaseURL))
	}
	if g.QueriesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("google.queries_per_second must not be negative, got %v", g.QueriesPerSecond))
	}
	if g.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("google.http_timeout must be positive, got %s", g.HTTPTimeout))
	}

	return errors.Join(errs...)
}
