// Package gps converts device-native coordinates into degrees and encodes
// coordinate sequences for map service requests.
package gps

import (
	"math"

	"example.com/runtracker/internal/domain"
)

// semicircleScale maps the signed 32-bit device unit range onto +/-180 degrees.
const semicircleScale = 180.0 / 2147483648.0

// Location is a latitude/longitude pair in degrees with an optional
// elevation in meters. It is the unit of exchange with the elevation and
// mapping services; elevation is nil until a provider fills it in.
type Location struct {
	Latitude  float64
	Longitude float64
	Elevation *float64
}

// SemicirclesToDegrees converts a device-native angular value into degrees.
func SemicirclesToDegrees(v int64) float64 {
	return float64(v) * semicircleScale
}

// LocationFromSemicircles builds a Location without elevation from
// device-native coordinates.
func LocationFromSemicircles(lat, lon int64) Location {
	return Location{
		Latitude:  SemicirclesToDegrees(lat),
		Longitude: SemicirclesToDegrees(lon),
	}
}

// EncodePolyline encodes the locations using the Google encoded polyline
// algorithm at 5 digits of precision. Points are emitted latitude first, as
// deltas from the previous point.
//
// Extracted and simplified from the reference algorithm:
// https://developers.google.com/maps/documentation/utilities/polylinealgorithm
func EncodePolyline(locations []Location) (string, error) {
	var out []byte
	prevLat, prevLon := int32(0), int32(0)

	for _, loc := range locations {
		lat := scale(loc.Latitude)
		lon := scale(loc.Longitude)
		var err error
		if out, err = appendValue(out, lat-prevLat); err != nil {
			return "", err
		}
		if out, err = appendValue(out, lon-prevLon); err != nil {
			return "", err
		}
		prevLat, prevLon = lat, lon
	}

	return string(out), nil
}

// scale converts a degree value into a fixed-precision integer.
func scale(v float64) int32 {
	return int32(math.Round(v * 1e5))
}

// appendValue emits one zig-zag transformed delta as 5-bit chunks with a
// continuation flag, each chunk offset by 63 into the printable ASCII range.
func appendValue(out []byte, delta int32) ([]byte, error) {
	v := delta << 1
	if delta < 0 {
		v = ^v
	}
	for v >= 0x20 {
		c := (0x20 | (v & 0x1f)) + 63
		if c < 63 || c > 126 {
			return nil, &domain.EncodingError{Value: c}
		}
		out = append(out, byte(c))
		v >>= 5
	}
	c := v + 63
	if c < 63 || c > 126 {
		return nil, &domain.EncodingError{Value: c}
	}
	return append(out, byte(c)), nil
}
