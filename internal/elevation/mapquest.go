package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
)

// mapquestNoData is the sentinel height the API returns for points without
// coverage. Treated the same as an explicit null: elevation absent.
const mapquestNoData = -32768

// MapQuest requests elevation data from the MapQuest open elevation API.
// Coordinates are submitted in compressed (polyline) form.
type MapQuest struct {
	baseURL    string
	apiVersion string
	apiKey     string
	batchSize  int
	client     *http.Client
	logger     *log.Logger
}

// NewMapQuest builds a provider from the service configuration.
func NewMapQuest(cfg config.ServiceConfig) (*MapQuest, error) {
	m := &MapQuest{
		baseURL:    "http://open.mapquestapi.com",
		apiVersion: "v1",
		batchSize:  512,
		client:     http.DefaultClient,
		logger:     log.New(log.Writer(), "[mapquest] ", log.LstdFlags),
	}
	for key, value := range cfg.Parameters {
		switch key {
		case "base_url":
			m.baseURL = value
		case "api_key":
			m.apiKey = value
		case "batch_size":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for mapquest.batch_size, expected an integer: %q", value)
			}
			m.batchSize = parsed
		default:
			m.logger.Printf("unknown configuration parameter for mapquest: %s=%q", key, value)
		}
	}
	return m, nil
}

type mapquestElevation struct {
	Distance float64  `json:"distance"`
	Height   *float64 `json:"height"`
}

type mapquestInfo struct {
	StatusCode int      `json:"statuscode"`
	Messages   []string `json:"messages"`
}

type mapquestResponse struct {
	ElevationProfile []mapquestElevation `json:"elevationProfile"`
	Info             mapquestInfo        `json:"info"`
}

// RequestElevation fetches elevations for all locations, mutating them in
// place. The API reports its own status code in the body; zero is success.
func (m *MapQuest) RequestElevation(ctx context.Context, locations []gps.Location) error {
	for start := 0; start < len(locations); start += m.batchSize {
		end := start + m.batchSize
		if end > len(locations) {
			end = len(locations)
		}
		if err := m.requestBatch(ctx, locations[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MapQuest) requestBatch(ctx context.Context, chunk []gps.Location) error {
	shape, err := gps.EncodePolyline(chunk)
	if err != nil {
		return err
	}
	params := url.Values{
		"key":              []string{m.apiKey},
		"shapeFormat":      []string{"cmp"},
		"latLngCollection": []string{shape},
	}
	requestURL := fmt.Sprintf("%s/elevation/%s/profile?%s", m.baseURL, m.apiVersion, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.ServiceError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	var body mapquestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.Info.StatusCode != 0 {
		return &domain.ServiceError{
			StatusCode: body.Info.StatusCode,
			Message:    strings.Join(body.Info.Messages, "; "),
		}
	}
	for i := range chunk {
		if i >= len(body.ElevationProfile) {
			break
		}
		height := body.ElevationProfile[i].Height
		if height == nil || int32(*height) == mapquestNoData {
			chunk[i].Elevation = nil
			continue
		}
		chunk[i].Elevation = height
	}
	return nil
}
