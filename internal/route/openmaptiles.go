package route

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
)

// OpenMapTiles draws routes through the static endpoint of a self-hosted
// OpenMapTiles tile server. The trace is passed as a lon,lat path query
// parameter over the trace's bounding box; the endpoint has no pin support,
// so markers are ignored.
type OpenMapTiles struct {
	baseURL     string
	style       string
	imageWidth  int
	imageHeight int
	imageFormat string
	strokeColor string
	strokeWidth int
	client      *http.Client
	logger      *log.Logger
}

// NewOpenMapTiles builds a provider from the service configuration.
func NewOpenMapTiles(cfg config.ServiceConfig) (*OpenMapTiles, error) {
	o := &OpenMapTiles{
		baseURL:     "http://localhost:8080",
		style:       "osm-bright",
		imageWidth:  1800,
		imageHeight: 1200,
		imageFormat: "png",
		strokeColor: "red",
		strokeWidth: 3,
		client:      http.DefaultClient,
		logger:      log.New(log.Writer(), "[openmaptiles] ", log.LstdFlags),
	}
	for key, value := range cfg.Parameters {
		switch key {
		case "base_url":
			o.baseURL = value
		case "style":
			o.style = value
		case "image_format":
			o.imageFormat = value
		case "stroke_color":
			o.strokeColor = value
		case "stroke_width":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for openmaptiles.stroke_width, expected an integer: %q", value)
			}
			o.strokeWidth = parsed
		case "image_width":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for openmaptiles.image_width, expected an integer: %q", value)
			}
			o.imageWidth = parsed
		case "image_height":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for openmaptiles.image_height, expected an integer: %q", value)
			}
			o.imageHeight = parsed
		default:
			o.logger.Printf("unknown configuration parameter for openmaptiles: %s=%q", key, value)
		}
	}
	return o, nil
}

// DrawRoute renders the trace and returns the raw image bytes.
func (o *OpenMapTiles) DrawRoute(ctx context.Context, trace []gps.Location, _ []Marker) ([]byte, error) {
	if len(trace) == 0 {
		return nil, errors.New("cannot draw a route from an empty trace")
	}

	minLat, maxLat := trace[0].Latitude, trace[0].Latitude
	minLon, maxLon := trace[0].Longitude, trace[0].Longitude
	segments := make([]string, len(trace))
	for i, loc := range trace {
		if loc.Latitude < minLat {
			minLat = loc.Latitude
		}
		if loc.Latitude > maxLat {
			maxLat = loc.Latitude
		}
		if loc.Longitude < minLon {
			minLon = loc.Longitude
		}
		if loc.Longitude > maxLon {
			maxLon = loc.Longitude
		}
		segments[i] = fmt.Sprintf("%f,%f", loc.Longitude, loc.Latitude)
	}

	params := url.Values{
		"stroke": []string{o.strokeColor},
		"width":  []string{strconv.Itoa(o.strokeWidth)},
		"path":   []string{strings.Join(segments, "|")},
	}
	// Ex.: http://localhost:8080/styles/osm-bright/static/-80.1465,39.46,-80.1313,39.4842/1800x1200.png
	requestURL := fmt.Sprintf("%s/styles/%s/static/%f,%f,%f,%f/%dx%d.%s?%s",
		o.baseURL, o.style, minLon, minLat, maxLon, maxLat,
		o.imageWidth, o.imageHeight, o.imageFormat, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return io.ReadAll(resp.Body)
}
