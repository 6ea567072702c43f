package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NotEmpty(t, cfg.DatabaseURL)
	require.Equal(t, "opentopodata", cfg.Elevation.Handler)
	require.Equal(t, "mapbox", cfg.Route.Handler)
	require.Empty(t, cfg.MetricsAddress)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x:y@db:5432/tracks")
	t.Setenv("IMPORT_PATHS", "/mnt/garmin, /mnt/backup ,")
	t.Setenv("ELEVATION_HANDLER", "mapquest")
	t.Setenv("ELEVATION_PARAMS", "api_key=secret, batch_size=256")

	cfg := Load()
	require.Equal(t, "postgres://x:y@db:5432/tracks", cfg.DatabaseURL)
	require.Equal(t, []string{"/mnt/garmin", "/mnt/backup"}, cfg.ImportPaths)
	require.Equal(t, "mapquest", cfg.Elevation.Handler)
	require.Equal(t, map[string]string{"api_key": "secret", "batch_size": "256"}, cfg.Elevation.Parameters)
}
