// Package elevation implements the elevation data providers and the handler
// registry that resolves the configured provider once at startup.
package elevation

import (
	"context"
	"fmt"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/gps"
)

// Source fetches elevation data for a batch of locations, mutating each
// location's elevation in place.
type Source interface {
	RequestElevation(ctx context.Context, locations []gps.Location) error
}

// NewSource resolves the configured handler key into a concrete provider.
func NewSource(cfg config.ServiceConfig) (Source, error) {
	switch cfg.Handler {
	case "opentopodata":
		return NewOpenTopoData(cfg)
	case "mapquest":
		return NewMapQuest(cfg)
	default:
		return nil, fmt.Errorf("no elevation handler exists for: %s", cfg.Handler)
	}
}
