package routing

import (
	"fmt"
	"math"
)

// Difficulty is a coarse effort rating for a route.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

const (
	taxiTengePerKm   = 50
	transitFareTenge = 150
	longRouteMinutes = 120
	hardRouteKm      = 20
	moderateRouteKm  = 10
)

// Analysis summarizes a route for display next to the map.
type Analysis struct {
	Difficulty       Difficulty `json:"difficulty"`
	Recommendations  []string   `json:"recommendations"`
	Warnings         []string   `json:"warnings"`
	EstimatedCostKZT int        `json:"estimated_cost_kzt"`
}

// Analyze rates a route by distance and duration and estimates the fare in
// tenge for driving (taxi) and transit.
func Analyze(result RouteResult) Analysis {
	analysis := Analysis{
		Difficulty:      Easy,
		Recommendations: []string{},
		Warnings:        []string{},
	}

	switch {
	case result.DistanceKm > hardRouteKm:
		analysis.Difficulty = Hard
		analysis.Recommendations = append(analysis.Recommendations, "Consider using transport")
	case result.DistanceKm > moderateRouteKm:
		analysis.Difficulty = Medium
		analysis.Recommendations = append(analysis.Recommendations, "Bring water and comfortable shoes")
	}

	if result.DurationMinutes > longRouteMinutes {
		analysis.Warnings = append(analysis.Warnings, "The route takes more than 2 hours")
		analysis.Recommendations = append(analysis.Recommendations, "Plan for breaks")
	}

	switch result.TravelMode {
	case Driving:
		analysis.EstimatedCostKZT = int(math.Round(result.DistanceKm * taxiTengePerKm))
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("Approximate taxi fare: %d KZT", analysis.EstimatedCostKZT))
	case Transit:
		analysis.EstimatedCostKZT = transitFareTenge
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("Transit fare: %d KZT", analysis.EstimatedCostKZT))
	}

	return analysis
}
