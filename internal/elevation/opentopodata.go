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
	"time"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/gps"
)

// OpenTopoData requests elevation data from an OpenTopoData instance,
// typically self-hosted. Points are submitted in sub-batches sized to the
// instance's configured limit, optionally paced to its rate limit.
type OpenTopoData struct {
	baseURL        string
	apiVersion     string
	dataset        string
	batchSize      int
	requestsPerSec float64
	client         *http.Client
	logger         *log.Logger
}

// NewOpenTopoData builds a provider from the service configuration. Unknown
// parameter keys are logged and skipped; malformed values are errors.
func NewOpenTopoData(cfg config.ServiceConfig) (*OpenTopoData, error) {
	o := &OpenTopoData{
		baseURL:        "http://localhost:5000",
		apiVersion:     "v1",
		dataset:        "ned10m", // works well for USA/Canada
		batchSize:      100,
		requestsPerSec: -1,
		client:         http.DefaultClient,
		logger:         log.New(log.Writer(), "[opentopodata] ", log.LstdFlags),
	}
	for key, value := range cfg.Parameters {
		switch key {
		case "base_url":
			o.baseURL = value
		case "dataset":
			o.dataset = value
		case "batch_size":
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid value for opentopodata.batch_size, expected an integer: %q", value)
			}
			o.batchSize = parsed
		case "requests_per_sec":
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value for opentopodata.requests_per_sec, expected a number: %q", value)
			}
			o.requestsPerSec = parsed
		default:
			o.logger.Printf("unknown configuration parameter for opentopodata: %s=%q", key, value)
		}
	}
	return o, nil
}

func (o *OpenTopoData) requestURL() string {
	return fmt.Sprintf("%s/%s/%s", o.baseURL, o.apiVersion, o.dataset)
}

type openTopoResult struct {
	Elevation *float64 `json:"elevation"`
}

type openTopoSuccess struct {
	Results []openTopoResult `json:"results"`
}

type openTopoError struct {
	Error string `json:"error"`
}

// RequestElevation fetches elevations for all locations, mutating them in
// place. Points the dataset has no coverage for keep a nil elevation.
func (o *OpenTopoData) RequestElevation(ctx context.Context, locations []gps.Location) error {
	// zero or negative rate means the instance imposes no limit
	var delay time.Duration
	if o.requestsPerSec > 0 {
		delay = time.Duration(1e6/o.requestsPerSec) * time.Microsecond
	}

	for start := 0; start < len(locations); start += o.batchSize {
		if start > 0 && delay > 0 {
			time.Sleep(delay)
		}
		end := start + o.batchSize
		if end > len(locations) {
			end = len(locations)
		}
		if err := o.requestBatch(ctx, locations[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (o *OpenTopoData) requestBatch(ctx context.Context, chunk []gps.Location) error {
	coords := make([]string, len(chunk))
	for i, loc := range chunk {
		coords[i] = fmt.Sprintf("%.6f,%.6f", loc.Latitude, loc.Longitude)
	}
	params := url.Values{"locations": []string{strings.Join(coords, "|")}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.requestURL()+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body openTopoError
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return &domain.ServiceError{StatusCode: resp.StatusCode, Message: "unparseable error response"}
		}
		return &domain.ServiceError{StatusCode: resp.StatusCode, Message: body.Error}
	}

	var body openTopoSuccess
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	for i := range chunk {
		if i < len(body.Results) {
			chunk[i].Elevation = body.Results[i].Elevation
		}
	}
	return nil
}
