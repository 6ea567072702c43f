package route

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
)

func newMapBoxTestDrawer(t *testing.T, handler http.HandlerFunc) *MapBox {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	drawer, err := NewMapBox(config.ServiceConfig{
		Handler:    "mapbox",
		Parameters: map[string]string{"base_url": server.URL, "access_token": "tok"},
	})
	require.NoError(t, err)
	return drawer
}

func TestMapBoxReturnsImageBytes(t *testing.T) {
	image := []byte{0x89, 'P', 'N', 'G'}
	var gotPath string
	drawer := newMapBoxTestDrawer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "tok", r.URL.Query().Get("access_token"))
		_, _ = w.Write(image)
	})

	trace := []gps.Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
	}
	markers := []Marker{
		{Label: "a", Location: trace[0]},
		{Label: "b", Location: trace[1]},
	}
	data, err := drawer.DrawRoute(context.Background(), trace, markers)
	require.NoError(t, err)
	require.Equal(t, image, data)
	require.Contains(t, gotPath, "/styles/v1/mapbox/streets-v11/static/")
	require.Contains(t, gotPath, "path-3+f44-0.50(")
	require.Contains(t, gotPath, "pin-s-a(")
	require.Contains(t, gotPath, "pin-s-b(")
}

func TestMapBoxErrorStatus(t *testing.T) {
	drawer := newMapBoxTestDrawer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := drawer.DrawRoute(context.Background(), []gps.Location{{}}, nil)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
}

func TestNewDrawerUnknownHandler(t *testing.T) {
	_, err := NewDrawer(config.ServiceConfig{Handler: "osm"})
	require.Error(t, err)
}
