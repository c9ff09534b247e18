package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProviderRequests counts outbound short.io API calls by operation and outcome.
var ProviderRequests = promauto.NewCounterVec(prom.CounterOpts{
	Namespace: "shorty",
	Subsystem: "provider",
	Name:      "requests_total",
	Help:      "Outbound short.io API requests by operation and outcome.",
}, []string{"operation", "outcome"})

// ObserveProviderCall records one outbound call result.
func ObserveProviderCall(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderRequests.WithLabelValues(operation, outcome).Inc()
}
