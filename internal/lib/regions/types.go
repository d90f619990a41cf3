package regions

import (
	"context"
	"errors"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

// ErrNoRegions is returned when classification is attempted without any
// reference regions.
var ErrNoRegions = errors.New("no regions to classify against")

// DefaultInsideRegionKm is the distance from a region's reference point
// within which a user counts as being inside that region.
const DefaultInsideRegionKm = 50.0

// Region is a named tourism region with a reference coordinate, usually the
// city centre.
type Region struct {
	ID          string    `json:"id" toml:"id"`
	Name        string    `json:"name" toml:"name"`
	Description string    `json:"description,omitempty" toml:"description"`
	Coordinates geo.Point `json:"coordinates" toml:"coordinates"`
}

// Attraction is a point of interest. Only Coordinates, RegionID and
// Categories are interpreted by the routing core.
type Attraction struct {
	ID            string    `json:"id" toml:"id"`
	Name          string    `json:"name" toml:"name"`
	Description   string    `json:"description,omitempty" toml:"description"`
	Address       string    `json:"address,omitempty" toml:"address"`
	RegionID      string    `json:"region_id" toml:"region_id"`
	Categories    []string  `json:"categories" toml:"categories"`
	Coordinates   geo.Point `json:"coordinates" toml:"coordinates"`
	Rating        float64   `json:"rating,omitempty" toml:"rating"`
	VisitDuration string    `json:"visit_duration,omitempty" toml:"visit_duration"`
}

// Classification is the result of placing a user relative to the known
// regions.
type Classification struct {
	Attractions    []Attraction `json:"attractions"`
	Region         *Region      `json:"region"`
	IsNearbyRegion bool         `json:"is_nearby_region"`
	DistanceKm     float64      `json:"distance_km"`
}

// Classifier narrows the attraction list to what is relevant for a user's
// location.
type Classifier interface {
	// FindNearestRegion returns the region whose reference point is closest
	// to the user, and the distance to it.
	FindNearestRegion(user geo.Point, regions []Region) (Region, float64, error)

	// Classify picks the nearest region and filters attractions to it when
	// the user is inside, or to radiusKm around the user otherwise.
	Classify(ctx context.Context, user geo.Point, attractions []Attraction, regions []Region, radiusKm float64) (Classification, error)
}
