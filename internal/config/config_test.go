package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50.0, cfg.Routing.InsideRegionKm)
	assert.Equal(t, 50, cfg.Routing.FallbackPointsPerSegment)
	assert.Equal(t, 8*time.Second, cfg.Routing.ProviderTimeout)
	assert.Equal(t, "ru", cfg.Google.Language)
	assert.Empty(t, cfg.Google.APIKey)
	assert.Empty(t, cfg.Catalog.Path)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.InsideRegionKm = 0
	cfg.Routing.FallbackPointsPerSegment = 0
	cfg.Routing.ProviderTimeout = -time.Second
	cfg.Google.BaseURL = "not a url"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "routing.inside_region_km")
	assert.Contains(t, msg, "routing.fallback_points_per_segment")
	assert.Contains(t, msg, "routing.provider_timeout")
	assert.Contains(t, msg, "google.base_url")
	assert.NotContains(t, msg, "routing.nearby_radius_km")
}

func TestValidate_TransitRadius(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.TransitStopsRadius = 60000
	assert.ErrorContains(t, cfg.Validate(), "routing.transit_stops_radius_m")
}

func TestValidate_TransitRefreshInterval(t *testing.T) {
	cfg := DefaultConfig()
	assert.Zero(t, cfg.Routing.TransitRefreshInterval)

	cfg.Routing.TransitRefreshInterval = -time.Minute
	assert.ErrorContains(t, cfg.Validate(), "routing.transit_refresh_interval")
}
