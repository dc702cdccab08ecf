// Package geo evaluates a country guess against a target: great-circle
// distance, initial bearing, proximity and the attempt-based score.
package geo

import "math"

const (
	EarthRadiusKm = 6371.0
	// MaxDistanceKm is roughly half of Earth's circumference; any pair at least
	// this far apart has 0% proximity.
	MaxDistanceKm = 20000.0

	BaseScore      = 1000
	AttemptPenalty = 150
	MinScore       = 100
)

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is anything that can be scored: a catalog country or a game's target.
type Place struct {
	Code  string
	Point Point
}

type Result struct {
	Distance  int     `json:"distance"`
	Direction float64 `json:"direction"`
	Proximity int     `json:"proximity"`
	IsCorrect bool    `json:"is_correct"`
}

var arrows = [8]string{"↑", "↗", "→", "↘", "↓", "↙", "←", "↖"}
var compass = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm is the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// BearingDegrees is the initial compass bearing from a to b in [0, 360).
func BearingDegrees(a, b Point) float64 {
	dLon := radians(b.Lon - a.Lon)
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
	if bearing >= 360 {
		bearing = 0
	}
	return bearing
}

func sector(bearing float64) int {
	return int(math.Round(bearing/45)) % 8
}

// DirectionArrow maps a bearing onto one of eight 45°-wide arrow sectors.
func DirectionArrow(bearing float64) string {
	return arrows[sector(bearing)]
}

// Compass is DirectionArrow with point names instead of arrows.
func Compass(bearing float64) string {
	return compass[sector(bearing)]
}

// ProximityPercent scales distance linearly onto [0, 100]. Only an exact hit
// reaches 100; near misses that would round up are held at 99.
func ProximityPercent(distance float64) int {
	p := int(math.Round(math.Max(0, (MaxDistanceKm-distance)/MaxDistanceKm*100)))
	if p >= 100 && distance > 0 {
		return 99
	}
	return p
}

// EvaluateGuess scores guessed against target. Matching codes short-circuit
// to a perfect result since bearing is undefined at zero distance.
func EvaluateGuess(guessed, target Place) Result {
	if guessed.Code == target.Code {
		return Result{Distance: 0, Direction: 0, Proximity: 100, IsCorrect: true}
	}

	distance := DistanceKm(guessed.Point, target.Point)
	return Result{
		Distance:  int(math.Round(distance)),
		Direction: BearingDegrees(guessed.Point, target.Point),
		Proximity: ProximityPercent(distance),
		IsCorrect: false,
	}
}

func ComputeScore(attemptNumber int, isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	score := BaseScore - (attemptNumber-1)*AttemptPenalty
	if score < MinScore {
		return MinScore
	}
	return score
}
