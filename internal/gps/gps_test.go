package gps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemicirclesToDegrees(t *testing.T) {
	require.Equal(t, 0.0, SemicirclesToDegrees(0))
	require.Equal(t, 180.0, SemicirclesToDegrees(2147483648))
	require.Equal(t, -180.0, SemicirclesToDegrees(-2147483648))
	require.InDelta(t, 90.0, SemicirclesToDegrees(1073741824), 1e-9)
}

func TestLocationFromSemicircles(t *testing.T) {
	loc := LocationFromSemicircles(1073741824, -1073741824)
	require.InDelta(t, 90.0, loc.Latitude, 1e-9)
	require.InDelta(t, -90.0, loc.Longitude, 1e-9)
	require.Nil(t, loc.Elevation)
}

func TestEncodePolylineReferenceVector(t *testing.T) {
	// Reference vector from the polyline algorithm documentation.
	locations := []Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}
	encoded, err := EncodePolyline(locations)
	require.NoError(t, err)
	require.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", encoded)
}

func TestEncodePolylineSinglePoint(t *testing.T) {
	encoded, err := EncodePolyline([]Location{{Latitude: -179.9832104, Longitude: -179.9832104}})
	require.NoError(t, err)
	require.Equal(t, "`~oia@`~oia@", encoded)
}

func TestEncodePolylineEmpty(t *testing.T) {
	encoded, err := EncodePolyline(nil)
	require.NoError(t, err)
	require.Equal(t, "", encoded)
}

func TestEncodePolylineIsOrderSensitive(t *testing.T) {
	a := []Location{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}}
	b := []Location{{Latitude: 3, Longitude: 4}, {Latitude: 1, Longitude: 2}}
	encA, err := EncodePolyline(a)
	require.NoError(t, err)
	encB, err := EncodePolyline(b)
	require.NoError(t, err)
	require.NotEqual(t, encA, encB)
}
