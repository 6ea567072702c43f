// Package route implements the map providers that render an activity's GPS
// trace into an image.
package route

import (
	"context"
	"fmt"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/gps"
)

// Marker is a labeled point overlaid on the rendered route.
type Marker struct {
	Label    string
	Location gps.Location
}

// Drawer renders a GPS trace plus markers into image bytes.
type Drawer interface {
	DrawRoute(ctx context.Context, trace []gps.Location, markers []Marker) ([]byte, error)
}

// NewDrawer resolves the configured handler key into a concrete provider.
func NewDrawer(cfg config.ServiceConfig) (Drawer, error) {
	switch cfg.Handler {
	case "mapbox":
		return NewMapBox(cfg)
	case "openmaptiles":
		return NewOpenMapTiles(cfg)
	default:
		return nil, fmt.Errorf("no route drawing handler exists for: %s", cfg.Handler)
	}
}
