// Package monitoring adapts the teacher's Prometheus metrics wrapper to
// the XTABLES client's domain: per-socket connection status, coalescing
// buffer occupancy, and request latency, instead of HTTP-service metrics.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientMetrics holds the Prometheus collectors a single XTABLES client
// instance reports. Unlike the teacher's service-wide MetricsCollector,
// this is scoped per client (labeled by the client's UUID) since a
// process may hold more than one client.
type ClientMetrics struct {
	registry *prometheus.Registry

	ConnectionStatus  *prometheus.GaugeVec
	BufferOccupancy   prometheus.Gauge
	BufferCapacity    prometheus.Gauge
	PendingRequests   prometheus.Gauge
	RequestDuration   *prometheus.HistogramVec
	DispatchedUpdates *prometheus.CounterVec
	DecodeErrors      prometheus.Counter
}

// NewClientMetrics creates a fresh, independently-registered collector
// set labeled by clientID, so multiple client instances in one process
// don't collide on metric names.
func NewClientMetrics(clientID string) *ClientMetrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"client": clientID}

	cm := &ClientMetrics{
		registry: reg,
		ConnectionStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "xtables_connection_status",
				Help:        "Connection status per logical socket (1=connected, 0.5=connect delayed or retried, 0=otherwise)",
				ConstLabels: labels,
			},
			[]string{"socket"},
		),
		BufferOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "xtables_buffer_occupancy",
			Help:        "Current element count in the subscription coalescing buffer",
			ConstLabels: labels,
		}),
		BufferCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "xtables_buffer_capacity",
			Help:        "Configured capacity of the subscription coalescing buffer",
			ConstLabels: labels,
		}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "xtables_pending_requests",
			Help:        "Number of outstanding Req-transport correlation entries",
			ConstLabels: labels,
		}),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "xtables_request_duration_seconds",
				Help:        "Req transport round-trip latency",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"command"},
		),
		DispatchedUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "xtables_dispatched_updates_total",
				Help:        "Subscription updates dispatched to user callbacks",
				ConstLabels: labels,
			},
			[]string{"category"},
		),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "xtables_decode_errors_total",
			Help:        "Frames discarded due to a codec decode error",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		cm.ConnectionStatus,
		cm.BufferOccupancy,
		cm.BufferCapacity,
		cm.PendingRequests,
		cm.RequestDuration,
		cm.DispatchedUpdates,
		cm.DecodeErrors,
	)
	return cm
}

// Handler returns an http.Handler serving this client's metrics in the
// Prometheus exposition format, for a caller that wants to fold client
// metrics into its own scrape endpoint.
func (cm *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(cm.registry, promhttp.HandlerOpts{})
}
