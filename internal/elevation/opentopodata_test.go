package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
)

func newOpenTopoTestSource(t *testing.T, handler http.HandlerFunc, params map[string]string) *OpenTopoData {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if params == nil {
		params = map[string]string{}
	}
	params["base_url"] = server.URL
	src, err := NewOpenTopoData(config.ServiceConfig{Handler: "opentopodata", Parameters: params})
	require.NoError(t, err)
	return src
}

func TestOpenTopoDataSetsElevations(t *testing.T) {
	src := newOpenTopoTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/ned10m", r.URL.Path)
		require.Contains(t, r.URL.Query().Get("locations"), "|")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"elevation": 12.5},
				{"elevation": nil},
			},
		})
	}, nil)

	locations := []gps.Location{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
	}
	require.NoError(t, src.RequestElevation(context.Background(), locations))
	require.NotNil(t, locations[0].Elevation)
	require.InDelta(t, 12.5, *locations[0].Elevation, 1e-9)
	require.Nil(t, locations[1].Elevation, "null elevation means no data available")
}

func TestOpenTopoDataSubBatches(t *testing.T) {
	requests := 0
	src := newOpenTopoTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		var results []map[string]any
		for i := 0; i < 2; i++ {
			results = append(results, map[string]any{"elevation": float64(requests)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}, map[string]string{"batch_size": "2"})

	locations := make([]gps.Location, 5)
	require.NoError(t, src.RequestElevation(context.Background(), locations))
	require.Equal(t, 3, requests)
	require.NotNil(t, locations[4].Elevation)
	require.InDelta(t, 3.0, *locations[4].Elevation, 1e-9)
}

func TestOpenTopoDataProviderError(t *testing.T) {
	src := newOpenTopoTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "dataset not found"}`)
	}, map[string]string{"dataset": "missing"})

	err := src.RequestElevation(context.Background(), []gps.Location{{}})
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	require.Equal(t, "dataset not found", svcErr.Message)
}

func TestNewOpenTopoDataRejectsBadParameters(t *testing.T) {
	_, err := NewOpenTopoData(config.ServiceConfig{
		Handler:    "opentopodata",
		Parameters: map[string]string{"batch_size": "many"},
	})
	require.Error(t, err)
}

func TestNewSourceUnknownHandler(t *testing.T) {
	_, err := NewSource(config.ServiceConfig{Handler: "google-elevation"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "google-elevation")
}
