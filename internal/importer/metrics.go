package importer

import "github.com/prometheus/client_golang/prometheus"

var (
	importedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "importer",
		Name:      "files_imported_total",
		Help:      "Number of activity files successfully imported.",
	})

	duplicateCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "importer",
		Name:      "duplicate_files_total",
		Help:      "Number of imports rejected because the fingerprint already existed.",
	})

	discardedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "importer",
		Name:      "messages_discarded_total",
		Help:      "Number of record/lap messages discarded for arriving before the file-identity message.",
	})

	rowCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "importer",
		Name:      "rows_inserted_total",
		Help:      "Number of rows staged per table during imports.",
	}, []string{"table"})
)

func init() {
	prometheus.MustRegister(importedCounter, duplicateCounter, discardedCounter, rowCounter)
}
