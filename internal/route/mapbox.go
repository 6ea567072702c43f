package route

import (
	"context"
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

// MapBox draws routes through the MapBox static image API. The trace is sent
// as an encoded polyline path overlay; markers become labeled pins.
type MapBox struct {
	baseURL       string
	apiVersion    string
	username      string
	style         string
	imageWidth    int
	imageHeight   int
	strokeColor   string
	strokeWidth   int
	strokeOpacity float64
	accessToken   string
	client        *http.Client
	logger        *log.Logger
}

// NewMapBox builds a provider from the service configuration.
func NewMapBox(cfg config.ServiceConfig) (*MapBox, error) {
	m := &MapBox{
		baseURL:       "https://api.mapbox.com",
		apiVersion:    "v1",
		username:      "mapbox",
		style:         "streets-v11",
		imageWidth:    1280,
		imageHeight:   1280,
		strokeColor:   "f44",
		strokeWidth:   3,
		strokeOpacity: 0.50,
		client:        http.DefaultClient,
		logger:        log.New(log.Writer(), "[mapbox] ", log.LstdFlags),
	}
	for key, value := range cfg.Parameters {
		switch key {
		case "base_url":
			m.baseURL = value
		case "access_token":
			m.accessToken = value
		case "style":
			m.style = value
		case "stroke_color":
			m.strokeColor = value
		case "image_width":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for mapbox.image_width, expected an integer: %q", value)
			}
			m.imageWidth = parsed
		case "image_height":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for mapbox.image_height, expected an integer: %q", value)
			}
			m.imageHeight = parsed
		default:
			m.logger.Printf("unknown configuration parameter for mapbox: %s=%q", key, value)
		}
	}
	return m, nil
}

// DrawRoute renders the trace and returns the raw image bytes.
func (m *MapBox) DrawRoute(ctx context.Context, trace []gps.Location, markers []Marker) ([]byte, error) {
	encoded, err := gps.EncodePolyline(trace)
	if err != nil {
		return nil, err
	}

	overlays := []string{fmt.Sprintf("path-%d+%s-%.2f(%s)",
		m.strokeWidth, m.strokeColor, m.strokeOpacity, url.PathEscape(encoded))}
	for _, marker := range markers {
		overlays = append(overlays, fmt.Sprintf("pin-s-%s(%f,%f)",
			url.PathEscape(strings.ToLower(marker.Label)), marker.Location.Longitude, marker.Location.Latitude))
	}

	requestURL := fmt.Sprintf("%s/styles/%s/%s/%s/static/%s/auto/%dx%d?access_token=%s",
		m.baseURL, m.apiVersion, m.username, m.style,
		strings.Join(overlays, ","), m.imageWidth, m.imageHeight, url.QueryEscape(m.accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return io.ReadAll(resp.Body)
}
