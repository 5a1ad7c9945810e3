// Package metrics provides Prometheus collectors for outgoing RPC calls.
package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets for node latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Status label values.
const (
	StatusOK       = "ok"
	StatusRPCError = "rpc_error"
	StatusError    = "error"
)

// Collectors holds the Prometheus collectors for RPC calls.
type Collectors struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(namespace string, reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total outgoing JSON-RPC calls by method and status.",
		}, []string{"method", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_request_duration_seconds",
			Help:      "Outgoing JSON-RPC call latency in seconds.",
			Buckets:   defaultBuckets,
		}, []string{"method"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rpc_requests_in_flight",
			Help:      "Number of JSON-RPC calls currently awaiting a response.",
		}),
	}

	if reg != nil {
		cols := []prometheus.Collector{c.RequestsTotal, c.RequestDuration, c.RequestsInFlight}
		for i, col := range cols {
			if err := reg.Register(col); err != nil {
				for _, done := range cols[:i] {
					reg.Unregister(done)
				}
				return nil, err
			}
		}
	}
	return c, nil
}

// methodPattern matches namespaced JSON-RPC method names such as eth_getLogs.
var methodPattern = regexp.MustCompile(`^[a-z][a-z0-9]{0,15}_[A-Za-z0-9]{1,48}$`)

// NormalizeMethod returns a bounded method label. Names that do not look like
// namespace_method are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if methodPattern.MatchString(method) {
		return method
	}
	return "other"
}
