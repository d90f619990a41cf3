package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Regions, 2)
	assert.Len(t, c.Attractions, 10)
	assert.Len(t, c.Categories, 12)
	assert.Len(t, c.Tours, 3)

	baiterek, err := c.Attraction("ast001")
	require.NoError(t, err)
	assert.Equal(t, "Байтерек", baiterek.Name)
	assert.Equal(t, "astana", baiterek.RegionID)
	assert.Equal(t, 51.1283, baiterek.Coordinates.Latitude)
	assert.Equal(t, 71.4306, baiterek.Coordinates.Longitude)
	assert.Equal(t, []string{"architecture", "scenic", "unique"}, baiterek.Categories)

	assert.Equal(t, 52.3, c.Regions[1].Coordinates.Latitude)
}

func TestTours(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tour, err := c.Tour("pvl_route_2")
	require.NoError(t, err)
	assert.Equal(t, routing.Driving, tour.TravelMode)

	attractions, err := c.TourAttractions(tour)
	require.NoError(t, err)
	require.Len(t, attractions, 2)
	assert.Equal(t, "pvl003", attractions[0].ID)
	assert.Equal(t, "pvl009", attractions[1].ID)

	assert.Len(t, c.ToursInRegion("pavlodar"), 2)
	assert.Len(t, c.ToursInRegion(""), 3)
	assert.Empty(t, c.ToursInRegion("almaty"))
}

func TestLookupNotFound(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Attraction("zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Tour("zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown region": `
[[regions]]
id = "astana"
coordinates = { latitude = 51.1694, longitude = 71.4491 }

[[attractions]]
id = "x1"
region_id = "almaty"
coordinates = { latitude = 43.2, longitude = 76.9 }
`,
		"invalid coordinates": `
[[regions]]
id = "astana"
coordinates = { latitude = 151.1694, longitude = 71.4491 }
`,
		"unknown tour attraction": `
[[regions]]
id = "astana"
coordinates = { latitude = 51.1694, longitude = 71.4491 }

[[tours]]
id = "t1"
attractions = ["nope"]
`,
		"unknown key": `
[[regions]]
id = "astana"
colour = "blue"
coordinates = { latitude = 51.1694, longitude = 71.4491 }
`,
		"no regions": ``,
		"bad syntax": `[[regions]`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(data)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[regions]]
id = "almaty"
name = "Алматы"
coordinates = { latitude = 43.2389, longitude = 76.8897 }

[[categories]]
id = "nature"
name = "Природа"

[[attractions]]
id = "alm001"
name = "Медеу"
region_id = "almaty"
categories = ["nature"]
coordinates = { latitude = 43.1575, longitude = 77.0586 }
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Regions, 1)

	a, err := c.Attraction("alm001")
	require.NoError(t, err)
	assert.Equal(t, "Медеу", a.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.Len(t, c.Regions, 2)
}
