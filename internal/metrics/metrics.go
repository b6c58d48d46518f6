package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "readgate"

var (
	RouteClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_classifications_total",
			Help:      "Total number of requests classified, labeled by read-replica eligibility.",
		},
		[]string{"eligible"},
	)

	TokenExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_extractions_total",
			Help:      "Total number of token extractions, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	AdmissionDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Total number of ext_authz check decisions, labeled by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RouteClassificationsTotal,
		TokenExtractionsTotal,
		AdmissionDecisionsTotal,
	)
}
