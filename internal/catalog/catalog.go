// Package catalog holds the static region, attraction and tour tables the
// guide serves. The tables are reference data: loaded once, never mutated.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dpup/steppe.guide/server/internal/lib/regions"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

// ErrNotFound is returned by lookups for unknown IDs.
var ErrNotFound = errors.New("not found")

//go:embed catalog.toml
var defaultCatalog string

// Category is a tag used to filter attractions.
type Category struct {
	ID   string `json:"id" toml:"id"`
	Name string `json:"name" toml:"name"`
	Icon string `json:"icon,omitempty" toml:"icon"`
}

// Tour is a curated visiting order through several attractions.
type Tour struct {
	ID                   string             `json:"id" toml:"id"`
	Name                 string             `json:"name" toml:"name"`
	Description          string             `json:"description,omitempty" toml:"description"`
	Duration             string             `json:"duration,omitempty" toml:"duration"`
	RegionID             string             `json:"region_id" toml:"region_id"`
	Attractions          []string           `json:"attractions" toml:"attractions"`
	RecommendedTransport string             `json:"recommended_transport,omitempty" toml:"recommended_transport"`
	TravelMode           routing.TravelMode `json:"travel_mode" toml:"travel_mode"`
	EstimatedCost        string             `json:"estimated_cost,omitempty" toml:"estimated_cost"`
}

// Catalog is the full set of reference tables.
type Catalog struct {
	Regions     []regions.Region     `toml:"regions"`
	Attractions []regions.Attraction `toml:"attractions"`
	Categories  []Category           `toml:"categories"`
	Tours       []Tour               `toml:"tours"`

	attractionsByID map[string]int
	toursByID       map[string]int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a TOML file. An empty path loads the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	var c Catalog
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("error decoding catalog file: %w", err)
	}
	return c.finish(md)
}

// Parse decodes a catalog from TOML text.
func Parse(data string) (*Catalog, error) {
	var c Catalog
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, fmt.Errorf("error decoding catalog: %w", err)
	}
	return c.finish(md)
}

func (c *Catalog) finish(md toml.MetaData) (*Catalog, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown catalog keys: %s", strings.Join(keys, ", "))
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks references between tables and builds the indexes.
func (c *Catalog) validate() error {
	var errs []error

	if len(c.Regions) == 0 {
		errs = append(errs, regions.ErrNoRegions)
	}

	regionIDs := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if regionIDs[r.ID] {
			errs = append(errs, fmt.Errorf("region %q: duplicate id", r.ID))
		}
		regionIDs[r.ID] = true
		if !r.Coordinates.Valid() {
			errs = append(errs, fmt.Errorf("region %q: invalid coordinates", r.ID))
		}
	}

	categoryIDs := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		categoryIDs[cat.ID] = true
	}

	c.attractionsByID = make(map[string]int, len(c.Attractions))
	for i, a := range c.Attractions {
		if _, dup := c.attractionsByID[a.ID]; dup {
			errs = append(errs, fmt.Errorf("attraction %q: duplicate id", a.ID))
		}
		c.attractionsByID[a.ID] = i
		if !a.Coordinates.Valid() {
			errs = append(errs, fmt.Errorf("attraction %q: invalid coordinates", a.ID))
		}
		if !regionIDs[a.RegionID] {
			errs = append(errs, fmt.Errorf("attraction %q: unknown region %q", a.ID, a.RegionID))
		}
		for _, cat := range a.Categories {
			if !categoryIDs[cat] {
				errs = append(errs, fmt.Errorf("attraction %q: unknown category %q", a.ID, cat))
			}
		}
	}

	c.toursByID = make(map[string]int, len(c.Tours))
	for i, t := range c.Tours {
		if _, dup := c.toursByID[t.ID]; dup {
			errs = append(errs, fmt.Errorf("tour %q: duplicate id", t.ID))
		}
		c.toursByID[t.ID] = i
		if len(t.Attractions) == 0 {
			errs = append(errs, fmt.Errorf("tour %q: no attractions", t.ID))
		}
		for _, id := range t.Attractions {
			if _, ok := c.attractionsByID[id]; !ok {
				errs = append(errs, fmt.Errorf("tour %q: unknown attraction %q", t.ID, id))
			}
		}
		if t.TravelMode != "" && !t.TravelMode.IsValid() {
			errs = append(errs, fmt.Errorf("tour %q: unknown travel mode %q", t.ID, t.TravelMode))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

// Attraction looks up an attraction by ID.
func (c *Catalog) Attraction(id string) (regions.Attraction, error) {
	i, ok := c.attractionsByID[id]
	if !ok {
		return regions.Attraction{}, fmt.Errorf("attraction %q: %w", id, ErrNotFound)
	}
	return c.Attractions[i], nil
}

// Tour looks up a curated tour by ID.
func (c *Catalog) Tour(id string) (Tour, error) {
	i, ok := c.toursByID[id]
	if !ok {
		return Tour{}, fmt.Errorf("tour %q: %w", id, ErrNotFound)
	}
	return c.Tours[i], nil
}

// TourAttractions resolves a tour's attraction IDs in visiting order.
func (c *Catalog) TourAttractions(t Tour) ([]regions.Attraction, error) {
	out := make([]regions.Attraction, 0, len(t.Attractions))
	for _, id := range t.Attractions {
		a, err := c.Attraction(id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ToursInRegion lists the tours for regionID, or all tours when empty.
func (c *Catalog) ToursInRegion(regionID string) []Tour {
	out := make([]Tour, 0, len(c.Tours))
	for _, t := range c.Tours {
		if regionID == "" || t.RegionID == regionID {
			out = append(out, t)
		}
	}
	return out
}
