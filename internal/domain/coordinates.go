package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Immutable geographic position (latitude, longitude) in decimal degrees.
type GeoPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Fallback center used until a real fix is known.
var DefaultPosition = GeoPosition{Latitude: 52.2297, Longitude: 21.0122}

// Valid reports whether both coordinates are present and inside WGS84 bounds.
// A zero latitude or longitude is treated as missing, matching how the
// persisted location and provider payloads encode "no value".
func (p GeoPosition) Valid() bool {
	if p.Latitude == 0 || p.Longitude == 0 {
		return false
	}
	return p.InRange()
}

// InRange reports whether both coordinates are numbers inside WGS84 bounds.
// Unlike Valid it accepts the equator and the prime meridian, so it is the
// check for fixes and viewports coming from a live device.
func (p GeoPosition) InRange() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Return the position as an orb point ([lon, lat]).
func (p GeoPosition) Point() orb.Point { return orb.Point{p.Longitude, p.Latitude} }

// DistanceKm returns the great-circle distance to other in kilometres.
func (p GeoPosition) DistanceKm(other GeoPosition) float64 {
	return geo.Distance(p.Point(), other.Point()) / 1000
}
