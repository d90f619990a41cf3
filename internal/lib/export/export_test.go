package export

import (
	"bytes"
	"encoding/xml"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

var (
	baiterek   = geo.Point{Latitude: 51.1283, Longitude: 71.4306}
	khanShatyr = geo.Point{Latitude: 51.1326, Longitude: 71.4064}
)

func testRoute() routing.RouteResult {
	return routing.BuildFallbackRoute(routing.RouteRequest{
		Origin:      baiterek,
		Destination: khanShatyr,
		TravelMode:  routing.Walking,
	}, routing.FallbackOptions{PointsPerSegment: 4, BoundsPadding: 0.005})
}

func TestGeoJSON(t *testing.T) {
	result := testRoute()
	result.ID = "route-1"

	data, err := GeoJSON(result).MarshalJSON()
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1+len(result.Instructions))

	route := fc.Features[0]
	assert.Equal(t, KindRoute, route.Properties["kind"])
	assert.Equal(t, true, route.Properties["is_fallback"])
	assert.Equal(t, "WALKING", route.Properties["travel_mode"])
	assert.Equal(t, "route-1", route.ID)

	line, ok := route.Geometry.(orb.LineString)
	require.True(t, ok)
	require.Len(t, line, 5)
	// GeoJSON is lon,lat
	assert.Equal(t, orb.Point{71.4306, 51.1283}, line[0])
	assert.Equal(t, orb.Point{71.4064, 51.1326}, line[4])

	arrival := fc.Features[len(fc.Features)-1]
	assert.Equal(t, KindInstruction, arrival.Properties["kind"])
	assert.Equal(t, "Arrive at destination", arrival.Properties["text"])
	assert.Equal(t, orb.Point{71.4064, 51.1326}, arrival.Geometry)

	require.Len(t, fc.BBox, 4)
	assert.InDelta(t, 71.4064-0.005, fc.BBox[0], 1e-9)
	assert.InDelta(t, 51.1326+0.005, fc.BBox[3], 1e-9)
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteKML(&buf, "Байтерек → Хан Шатыр", testRoute()))

	out := buf.String()
	assert.Contains(t, out, "<kml")
	assert.Contains(t, out, "<LineString>")
	assert.Contains(t, out, "71.4306,51.1283")
	assert.Contains(t, out, "Байтерек → Хан Шатыр")
	assert.Contains(t, out, "Arrive at destination")
	assert.Contains(t, out, "(approximate)")

	// Well-formed XML
	dec := xml.NewDecoder(bytes.NewReader(buf.Bytes()))
	for {
		_, err := dec.Token()
		if err != nil {
			assert.EqualError(t, err, "EOF")
			break
		}
	}
}
