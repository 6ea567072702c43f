// Package observability exposes process-level metrics shared across engines.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var fileImportedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "runtracker",
	Subsystem: "importer",
	Name:      "last_file_imported_timestamp_seconds",
	Help:      "Unix timestamp of the most recent activity file committed to the database.",
})

func init() {
	prometheus.MustRegister(fileImportedGauge)
}

// RecordFileImported updates the import watermark gauge.
func RecordFileImported(ts time.Time) {
	if ts.IsZero() {
		return
	}
	fileImportedGauge.Set(float64(ts.Unix()))
}

// Handler returns the metrics scrape handler for the optional listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
