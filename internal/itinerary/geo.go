package itinerary

import (
	"math"
	"strings"
)

// EarthRadiusMeters is the mean Earth radius used by DistanceMeters.
const EarthRadiusMeters = 6_371_000.0

// GeoPoint is a WGS-84 coordinate in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewGeoPoint returns nil for the legacy (0, 0) "no coordinates" marker so
// stored rows and client payloads that still send it become an explicit
// missing location.
func NewGeoPoint(lat, lng float64) *GeoPoint {
	if lat == 0 && lng == 0 {
		return nil
	}
	return &GeoPoint{Lat: lat, Lng: lng}
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b GeoPoint) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Mode is a travel mode for time estimates.
type Mode string

const (
	Walk    Mode = "walk"
	Transit Mode = "transit"
	Drive   Mode = "drive"
)

// ParseMode maps user input to a Mode, defaulting to Drive.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Walk:
		return Walk
	case Transit:
		return Transit
	default:
		return Drive
	}
}

type modeProfile struct {
	speedKmh      float64
	bufferMinutes int
}

var modeProfiles = map[Mode]modeProfile{
	Walk:    {speedKmh: 5, bufferMinutes: 3},
	Transit: {speedKmh: 18, bufferMinutes: 3},
	Drive:   {speedKmh: 30, bufferMinutes: 8},
}

// EstimateTravelMinutes converts a distance into minutes of travel: moving
// time at the mode's average speed, rounded up, plus a fixed per-mode buffer
// for stops, lights and parking. Unknown modes are treated as Drive.
func EstimateTravelMinutes(meters float64, mode Mode) int {
	p, ok := modeProfiles[mode]
	if !ok {
		p = modeProfiles[Drive]
	}
	// meters*60 / (km/h * 1000) keeps exact results for whole-kilometre inputs.
	moving := meters * 60 / (p.speedKmh * 1000)
	return int(math.Ceil(moving)) + p.bufferMinutes
}
