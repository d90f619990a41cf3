// Package export renders routes into formats map surfaces load directly.
package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-kml"

	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

// Feature kinds set in the "kind" property of every GeoJSON feature.
const (
	KindRoute       = "route"
	KindInstruction = "instruction"
)

// GeoJSON builds a FeatureCollection holding the route path as a
// LineString followed by one Point per instruction.
func GeoJSON(result routing.RouteResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, len(result.Coordinates))
	for i, p := range result.Coordinates {
		line[i] = toOrb(p)
	}

	route := geojson.NewFeature(line)
	route.Properties["kind"] = KindRoute
	route.Properties["distance_km"] = result.DistanceKm
	route.Properties["duration_minutes"] = result.DurationMinutes
	route.Properties["travel_mode"] = string(result.TravelMode)
	route.Properties["is_fallback"] = result.IsFallback
	if result.ID != "" {
		route.ID = result.ID
	}
	fc.Append(route)

	for i, in := range result.Instructions {
		f := geojson.NewFeature(toOrb(in.At))
		f.Properties["kind"] = KindInstruction
		f.Properties["step"] = i
		f.Properties["text"] = in.Text
		f.Properties["distance"] = in.DistanceLabel
		f.Properties["duration"] = in.DurationLabel
		fc.Append(f)
	}

	if result.Bounds.Valid() {
		fc.BBox = geojson.NewBBox(orb.Bound{
			Min: toOrb(result.Bounds.Southwest),
			Max: toOrb(result.Bounds.Northeast),
		})
	}

	return fc
}

// WriteKML writes the route as a KML document with a path placemark and a
// point placemark per instruction.
func WriteKML(w io.Writer, name string, result routing.RouteResult) error {
	coords := make([]kml.Coordinate, len(result.Coordinates))
	for i, p := range result.Coordinates {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}

	description := fmt.Sprintf("%.1f km, %.0f min, %s", result.DistanceKm, result.DurationMinutes, result.TravelMode)
	if result.IsFallback {
		description += " (approximate)"
	}

	steps := make([]kml.Element, 0, len(result.Instructions)+1)
	steps = append(steps, kml.Name("Instructions"))
	for _, in := range result.Instructions {
		steps = append(steps, kml.Placemark(
			kml.Name(in.Text),
			kml.Description(fmt.Sprintf("%s, %s", in.DistanceLabel, in.DurationLabel)),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: in.At.Longitude, Lat: in.At.Latitude})),
		))
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(name),
			kml.Placemark(
				kml.Name(name),
				kml.Description(description),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
			kml.Folder(steps...),
		),
	)

	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func toOrb(p geo.Point) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}
