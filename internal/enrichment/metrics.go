package enrichment

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "enrichment",
		Name:      "rows_attempted_total",
		Help:      "Number of rows submitted to the elevation provider per table.",
	}, []string{"table"})

	setCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "enrichment",
		Name:      "rows_set_total",
		Help:      "Number of rows that received a non-null elevation per table.",
	}, []string{"table"})

	providerErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtracker",
		Subsystem: "enrichment",
		Name:      "provider_errors_total",
		Help:      "Number of elevation provider batch failures.",
	})
)

func init() {
	prometheus.MustRegister(attemptedCounter, setCounter, providerErrorCounter)
}
