package prometrics

import (
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Catalog declares every metric the service emits. Label keys here must match
// the labels passed at the call sites.
func Catalog(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests: r.Counter(string(observability.MHTTPRequests),
			"Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests: r.Counter(string(observability.MExternalRequests),
			"Outbound calls to external systems.", "peer", "endpoint", "outcome"),
		observability.MCacheRequests: r.Counter(string(observability.MCacheRequests),
			"Cache lookups and writes.", "cache", "op", "result"),
		observability.MPaymentOutcomes: r.Counter(string(observability.MPaymentOutcomes),
			"Settled payment attempts.", "status", "provider"),
		observability.MPaymentInconsistencies: r.Counter(string(observability.MPaymentInconsistencies),
			"Charges whose outcome could not be recorded and need reconciliation.", "reason"),
		observability.MEventsHandled: r.Counter(string(observability.MEventsHandled),
			"Event handler executions on the in-process bus.", "event", "result"),
		observability.MEventsRelayed: r.Counter(string(observability.MEventsRelayed),
			"Events forwarded to the external broker.", "event", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", latencyBuckets, "use_case"),
		observability.MHTTPRequestDuration: r.Histogram(string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration),
			"Duration of outbound calls in seconds.", latencyBuckets, "peer", "endpoint"),
	}
	return counters, histograms
}
