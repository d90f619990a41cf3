package regions

import (
	"context"
	"slices"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
)

// DefaultNearbyRadiusKm is the search radius used when the user is outside
// every region.
const DefaultNearbyRadiusKm = 200.0

// classifier implements the Classifier interface
type classifier struct {
	insideRegionKm float64
}

// NewClassifier creates a Classifier that treats users within insideRegionKm
// of a region reference point as inside that region. Non-positive values use
// DefaultInsideRegionKm.
func NewClassifier(insideRegionKm float64) Classifier {
	if insideRegionKm <= 0 {
		insideRegionKm = DefaultInsideRegionKm
	}
	return &classifier{insideRegionKm: insideRegionKm}
}

// FindNearestRegion does a linear scan; exact ties keep the earlier region.
func (c *classifier) FindNearestRegion(user geo.Point, regions []Region) (Region, float64, error) {
	if len(regions) == 0 {
		return Region{}, 0, ErrNoRegions
	}
	if !user.Valid() {
		return Region{}, 0, geo.ErrInvalidCoordinate
	}

	nearest := regions[0]
	shortest := geo.Haversine(user, regions[0].Coordinates)

	for _, region := range regions[1:] {
		if d := geo.Haversine(user, region.Coordinates); d < shortest {
			nearest, shortest = region, d
		}
	}

	return nearest, shortest, nil
}

// Classify is a two tier filter: region membership first, then a radius
// scan. It is linear in the number of attractions.
func (c *classifier) Classify(ctx context.Context, user geo.Point, attractions []Attraction, regions []Region, radiusKm float64) (Classification, error) {
	region, distance, err := c.FindNearestRegion(user, regions)
	if err != nil {
		return Classification{}, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}

	logging.Debugw(logging.EnsureLogger(ctx), "Classified user location",
		"region", region.ID,
		"distance_km", distance,
		"inside_threshold_km", c.insideRegionKm)

	if distance <= c.insideRegionKm {
		return Classification{
			Attractions:    FilterByRegion(attractions, region.ID),
			Region:         &region,
			IsNearbyRegion: true,
			DistanceKm:     distance,
		}, nil
	}

	return Classification{
		Attractions:    FilterWithinRadius(user, attractions, radiusKm),
		Region:         &region,
		IsNearbyRegion: false,
		DistanceKm:     distance,
	}, nil
}

// FilterByRegion keeps attractions belonging to regionID. An empty regionID
// keeps everything.
func FilterByRegion(attractions []Attraction, regionID string) []Attraction {
	if regionID == "" {
		return slices.Clone(attractions)
	}
	filtered := make([]Attraction, 0, len(attractions))
	for _, a := range attractions {
		if a.RegionID == regionID {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// FilterWithinRadius keeps attractions at most radiusKm from center.
// Attractions with invalid coordinates are dropped.
func FilterWithinRadius(center geo.Point, attractions []Attraction, radiusKm float64) []Attraction {
	filtered := make([]Attraction, 0, len(attractions))
	for _, a := range attractions {
		if geo.IsWithinRadius(center, a.Coordinates, radiusKm) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// FilterByCategories keeps attractions tagged with any of the categories.
// No categories keeps everything.
func FilterByCategories(attractions []Attraction, categories []string) []Attraction {
	if len(categories) == 0 {
		return slices.Clone(attractions)
	}
	filtered := make([]Attraction, 0, len(attractions))
	for _, a := range attractions {
		for _, c := range a.Categories {
			if slices.Contains(categories, c) {
				filtered = append(filtered, a)
				break
			}
		}
	}
	return filtered
}
