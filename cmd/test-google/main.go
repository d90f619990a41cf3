package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc/status"

	"github.com/dpup/steppe.guide/server/internal/clients/google"
	"github.com/dpup/steppe.guide/server/internal/lib/geo"
	"github.com/dpup/steppe.guide/server/internal/lib/routing"
)

func main() {
	var (
		apiKey    = flag.String("api-key", "", "Google Maps API key (or set GOOGLE_API_KEY env var)")
		originStr = flag.String("origin", "51.128300,71.430600", "Origin coordinates (lat,lon)")
		destStr   = flag.String("dest", "51.132600,71.406400", "Destination coordinates (lat,lon)")
		modeStr   = flag.String("mode", "walking", "Travel mode: walking, driving, transit or bicycling")
		stops     = flag.Bool("stops", false, "Also list transit stops near the origin")
		timeout   = flag.Duration("timeout", 8*time.Second, "Per-call timeout")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Google Directions API Test Tool\n\n")
		fmt.Printf("Calls the live Directions and Places APIs through the production client.\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s -api-key=YOUR_KEY\n", os.Args[0])
		fmt.Printf("  %s -origin=\"52.2870,76.9670\" -dest=\"51.1283,71.4306\" -mode=driving\n", os.Args[0])
		fmt.Printf("  GOOGLE_API_KEY=your_key %s -stops\n", os.Args[0])
		return
	}

	// Get API key from flag or environment
	key := *apiKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		log.Fatal("Google API key required. Use -api-key flag or GOOGLE_API_KEY env var")
	}

	// Parse coordinates
	var origin, destination geo.Point
	if _, err := fmt.Sscanf(*originStr, "%f,%f", &origin.Latitude, &origin.Longitude); err != nil {
		log.Fatalf("Invalid origin coordinates: %v", err)
	}
	if _, err := fmt.Sscanf(*destStr, "%f,%f", &destination.Latitude, &destination.Longitude); err != nil {
		log.Fatalf("Invalid destination coordinates: %v", err)
	}

	mode, ok := routing.ParseTravelMode(*modeStr)
	if !ok {
		log.Fatalf("Unknown travel mode %q", *modeStr)
	}

	fmt.Printf("Google Directions API Test\n")
	fmt.Printf("==========================\n")
	fmt.Printf("Origin: %s\n", geo.FormatCoordinates(origin.Latitude, origin.Longitude, 6))
	fmt.Printf("Destination: %s\n", geo.FormatCoordinates(destination.Latitude, destination.Longitude, 6))
	fmt.Printf("Mode: %s\n", mode)
	fmt.Printf("API Key: %s...\n", key[:min(len(key), 10)])
	fmt.Printf("\n")

	client := google.NewClient(google.Config{APIKey: key})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Testing Directions...\n")
	route, err := client.Directions(ctx, routing.RouteRequest{
		Origin:      origin,
		Destination: destination,
		TravelMode:  mode,
	})
	if err != nil {
		var dirErr *google.DirectionsError
		if errors.As(err, &dirErr) {
			log.Fatalf("Directions failed (cause=%s status=%s http=%d code=%s): %v",
				dirErr.Cause, dirErr.Status, dirErr.HTTPStatus, status.Code(err), err)
		}
		log.Fatalf("Directions failed: %v", err)
	}

	fmt.Printf("✅ Directions successful!\n")
	fmt.Printf("Distance: %.2f km (straight line %.2f km)\n", route.DistanceKm, geo.Haversine(origin, destination))
	fmt.Printf("Duration: %.1f minutes\n", route.DurationMinutes)
	fmt.Printf("Points: %d\n", len(route.Coordinates))
	fmt.Printf("Analysis: %s\n", routing.Analyze(*route).Difficulty)
	for i, in := range route.Instructions {
		fmt.Printf("  %d: %s (%s, %s)\n", i+1, in.Text, in.DistanceLabel, in.DurationLabel)
	}

	if *stops {
		fmt.Printf("\nTesting NearbyTransitStops...\n")
		found, err := client.NearbyTransitStops(ctx, origin, 500)
		if err != nil {
			log.Fatalf("NearbyTransitStops failed: %v", err)
		}
		fmt.Printf("✅ Found %d transit stops\n", len(found))
		for _, s := range found {
			fmt.Printf("  %s (%.0f m)\n", s.Name, s.DistanceKm*1000)
		}
	}

	fmt.Printf("\n🎉 All Google API tests passed!\n")
}
