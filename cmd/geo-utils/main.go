package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/steppe.guide/server/internal/catalog"
	"github.com/dpup/steppe.guide/server/internal/lib/export"
	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/regions"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "distance":
		handleDistance()
	case "decode-polyline":
		handleDecodePolyline()
	case "fallback-route":
		handleFallbackRoute()
	case "classify":
		handleClassify()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleDistance() {
	fs := flag.NewFlagSet("distance", flag.ExitOnError)
	from := fs.String("from", "", "Start point as lat,lng")
	to := fs.String("to", "", "End point as lat,lng")
	mode := fs.String("mode", "walking", "Travel mode used for the time estimate")

	_ = fs.Parse(os.Args[2:])

	if *from == "" || *to == "" {
		fmt.Println("Example usage:")
		fmt.Println("  geo-utils distance --from 51.1283,71.4306 --to 51.1326,71.4064")
		fmt.Println("  (Baiterek to Khan Shatyr)")
		os.Exit(1)
	}

	p1 := mustParsePoint(*from)
	p2 := mustParsePoint(*to)
	travelMode := mustParseMode(*mode)

	distance, err := geo.Distance(p1, p2)
	if err != nil {
		log.Fatalf("Error calculating distance: %v", err)
	}

	fmt.Printf("Distance between points:\n")
	fmt.Printf("  From: %s\n", geo.FormatCoordinates(p1.Latitude, p1.Longitude, 6))
	fmt.Printf("  To: %s\n", geo.FormatCoordinates(p2.Latitude, p2.Longitude, 6))
	fmt.Printf("  Distance: %.3f km\n", distance)
	fmt.Printf("  Bearing: %.1f°\n", geo.Bearing(p1, p2))
	fmt.Printf("  Estimated %s time: %.0f min\n", strings.ToLower(string(travelMode)), routing.EstimateTravelTime(distance, travelMode))
}

func handleDecodePolyline() {
	fs := flag.NewFlagSet("decode-polyline", flag.ExitOnError)
	polylineStr := fs.String("polyline", "", "Encoded polyline string to decode")
	verbose := fs.Bool("verbose", false, "Show all decoded points")

	_ = fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  geo-utils decode-polyline --polyline \"_p~iF~ps|U_ulLnnqC_mqNvxq`@\"")
		fmt.Println("  geo-utils decode-polyline --polyline \"encoded_string\" --verbose")
		os.Exit(1)
	}

	points, err := geo.DecodePolyline(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}

	fmt.Printf("Polyline decoded successfully:\n")
	fmt.Printf("  Points: %d\n", len(points))
	fmt.Printf("  Start: (%.6f, %.6f)\n", points[0].Latitude, points[0].Longitude)
	if len(points) > 1 {
		fmt.Printf("  End: (%.6f, %.6f)\n", points[len(points)-1].Latitude, points[len(points)-1].Longitude)
	}
	fmt.Printf("  Path length: %.3f km\n", routing.TotalRouteDistance(points))

	if *verbose {
		fmt.Printf("  All points:\n")
		for i, point := range points {
			fmt.Printf("    %d: (%.6f, %.6f)\n", i+1, point.Latitude, point.Longitude)
		}
	}
}

func handleFallbackRoute() {
	fs := flag.NewFlagSet("fallback-route", flag.ExitOnError)
	from := fs.String("from", "", "Origin as lat,lng")
	to := fs.String("to", "", "Destination as lat,lng")
	via := fs.String("via", "", "Waypoints as lat,lng;lat,lng")
	mode := fs.String("mode", "walking", "Travel mode")
	optimize := fs.Bool("optimize", false, "Reorder waypoints nearest-neighbour first")
	points := fs.Int("points", routing.DefaultPointsPerSegment, "Interpolation steps per segment")
	format := fs.String("format", "text", "Output format: text, geojson or kml")

	_ = fs.Parse(os.Args[2:])

	if *from == "" || *to == "" {
		fmt.Println("Example usage:")
		fmt.Println("  geo-utils fallback-route --from 52.2870,76.9670 --to 51.1283,71.4306 --mode driving")
		fmt.Println("  geo-utils fallback-route --from 51.1283,71.4306 --to 51.1326,71.4064 --via \"51.1801,71.4460;51.1278,71.4691\" --optimize --format geojson")
		os.Exit(1)
	}

	req := routing.RouteRequest{
		Origin:      mustParsePoint(*from),
		Destination: mustParsePoint(*to),
		TravelMode:  mustParseMode(*mode),
		Optimize:    *optimize,
	}
	if *via != "" {
		waypoints, err := parseCoordinatePairs(*via)
		if err != nil {
			log.Fatalf("Error parsing waypoints: %v", err)
		}
		req.Waypoints = waypoints
	}

	opts := routing.DefaultFallbackOptions()
	opts.PointsPerSegment = *points
	result := routing.BuildFallbackRoute(req, opts)

	switch *format {
	case "geojson":
		data, err := export.GeoJSON(result).MarshalJSON()
		if err != nil {
			log.Fatalf("Error encoding GeoJSON: %v", err)
		}
		fmt.Println(string(data))
	case "kml":
		if err := export.WriteKML(os.Stdout, "Fallback route", result); err != nil {
			log.Fatalf("Error writing KML: %v", err)
		}
	default:
		analysis := routing.Analyze(result)
		fmt.Printf("Fallback route:\n")
		fmt.Printf("  Mode: %s\n", result.TravelMode)
		fmt.Printf("  Distance: %.2f km\n", result.DistanceKm)
		fmt.Printf("  Duration: %.0f min\n", result.DurationMinutes)
		fmt.Printf("  Points: %d\n", len(result.Coordinates))
		fmt.Printf("  Waypoint order: %v\n", result.WaypointOrder)
		fmt.Printf("  Difficulty: %s\n", analysis.Difficulty)
		if analysis.EstimatedCostKZT > 0 {
			fmt.Printf("  Estimated cost: %d KZT\n", analysis.EstimatedCostKZT)
		}
		for _, w := range analysis.Warnings {
			fmt.Printf("  Warning: %s\n", w)
		}
		fmt.Printf("  Instructions:\n")
		for i, in := range result.Instructions {
			fmt.Printf("    %d: %s (%s, %s)\n", i+1, in.Text, in.DistanceLabel, in.DurationLabel)
		}
		fmt.Printf("  Encoded: %s\n", geo.EncodePolyline(result.Coordinates))
	}
}

func handleClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	at := fs.String("at", "", "User location as lat,lng")
	radius := fs.Float64("radius", regions.DefaultNearbyRadiusKm, "Search radius in km when outside every region")
	inside := fs.Float64("inside", regions.DefaultInsideRegionKm, "Distance in km that counts as inside a region")
	categories := fs.String("categories", "", "Comma separated category filter")
	catalogPath := fs.String("catalog", "", "Catalog TOML file (default: built-in)")

	_ = fs.Parse(os.Args[2:])

	if *at == "" {
		fmt.Println("Example usage:")
		fmt.Println("  geo-utils classify --at 52.2870,76.9670")
		fmt.Println("  geo-utils classify --at 50.2750,75.7000 --radius 300 --categories nature")
		os.Exit(1)
	}

	c, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Fatalf("Error loading catalog: %v", err)
	}

	var filter []string
	if *categories != "" {
		filter = strings.Split(*categories, ",")
	}

	classifier := regions.NewClassifier(*inside)
	ctx := logging.EnsureLogger(context.Background())
	result, err := classifier.Classify(ctx, mustParsePoint(*at),
		regions.FilterByCategories(c.Attractions, filter), c.Regions, *radius)
	if err != nil {
		log.Fatalf("Error classifying location: %v", err)
	}

	fmt.Printf("Location classification:\n")
	fmt.Printf("  Nearest region: %s (%s)\n", result.Region.Name, result.Region.ID)
	fmt.Printf("  Distance: %.1f km\n", result.DistanceKm)
	fmt.Printf("  Inside region: %t\n", result.IsNearbyRegion)
	fmt.Printf("  Attractions: %d\n", len(result.Attractions))
	for _, a := range result.Attractions {
		fmt.Printf("    %s  %s  [%s]\n", a.ID, a.Name, strings.Join(a.Categories, ", "))
	}
}

func printUsage() {
	fmt.Printf(`geo-utils - Offline routing and geodesy tool

USAGE:
    geo-utils <command> [options]

COMMANDS:
    distance            Great-circle distance, bearing and travel time estimate
    decode-polyline     Decode Google polyline string to coordinates
    fallback-route      Synthesize the straight-line route used when Directions fails
    classify            Find the nearest region and the attractions to show
    help                Show this help message

EXAMPLES:
    # Baiterek to Khan Shatyr
    geo-utils distance --from 51.1283,71.4306 --to 51.1326,71.4064

    # Decode polyline to see coordinates
    geo-utils decode-polyline --polyline "encoded_string" --verbose

    # Pavlodar to Astana as a KML layer
    geo-utils fallback-route --from 52.2870,76.9670 --to 51.1283,71.4306 --mode driving --format kml

    # Attractions around Bayanaul
    geo-utils classify --at 50.7930,75.7000 --radius 100
`)
}

func mustParsePoint(s string) geo.Point {
	points, err := parseCoordinatePairs(s)
	if err != nil || len(points) != 1 {
		log.Fatalf("Invalid point %q: expected lat,lng", s)
	}
	return points[0]
}

func mustParseMode(s string) routing.TravelMode {
	mode, ok := routing.ParseTravelMode(s)
	if !ok {
		log.Fatalf("Unknown travel mode %q", s)
	}
	return mode
}

// Helper function to parse coordinate pairs from string
func parseCoordinatePairs(coordStr string) ([]geo.Point, error) {
	if coordStr == "" {
		return nil, fmt.Errorf("empty coordinate string")
	}

	pairs := strings.Split(coordStr, ";")
	points := make([]geo.Point, 0, len(pairs))

	for _, pair := range pairs {
		coords := strings.Split(strings.TrimSpace(pair), ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid coordinate pair: %s", pair)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude: %s", coords[0])
		}

		lng, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude: %s", coords[1])
		}

		p, err := geo.NewPoint(lat, lng)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate pair %s: %w", pair, err)
		}
		points = append(points, p)
	}

	return points, nil
}
