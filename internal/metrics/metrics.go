// Package metrics implements interfaces.Observer backed by
// prometheus/client_golang counter/gauge vectors, giving a real operator a
// registry worth scraping instead of hand-rolled atomic counters. No HTTP
// exposition endpoint is wired here deliberately; this package only
// exposes the registry via Gatherer for an optional caller to wire.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opsbridge/ups-snmpd/internal/interfaces"
)

// PrometheusObserver implements interfaces.Observer.
type PrometheusObserver struct {
	registry           *prometheus.Registry
	jobsTotal          *prometheus.CounterVec
	jobLatency         *prometheus.HistogramVec
	queueDepth         prometheus.Gauge
	heartbeatFailures  prometheus.Gauge
	snmpRequestsTotal  *prometheus.CounterVec
}

// NewPrometheusObserver constructs an observer with its own private
// registry (never the global DefaultRegisterer, so multiple instances in
// tests don't collide).
func NewPrometheusObserver() *PrometheusObserver {
	reg := prometheus.NewRegistry()

	o := &PrometheusObserver{
		registry: reg,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ups_engine_jobs_total",
			Help: "UART transaction engine job outcomes by descriptor kind and result.",
		}, []string{"kind", "outcome"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ups_engine_job_duration_seconds",
			Help:    "UART transaction engine job latency from TxStart to terminal outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ups_engine_queue_depth",
			Help: "Current UART transaction engine job queue depth.",
		}),
		heartbeatFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ups_engine_heartbeat_failures",
			Help: "Consecutive heartbeat failure count.",
		}),
		snmpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ups_snmp_requests_total",
			Help: "SNMP requests handled by PDU kind and resulting error status.",
		}, []string{"pdu", "error_status"}),
	}

	reg.MustRegister(o.jobsTotal, o.jobLatency, o.queueDepth, o.heartbeatFailures, o.snmpRequestsTotal)
	return o
}

// Gatherer exposes the private registry for an optional caller to wire to
// an HTTP handler; this package itself serves nothing over the network.
func (o *PrometheusObserver) Gatherer() prometheus.Gatherer { return o.registry }

func (o *PrometheusObserver) ObserveJob(kind string, outcome string, latency time.Duration) {
	o.jobsTotal.WithLabelValues(kind, outcome).Inc()
	o.jobLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

func (o *PrometheusObserver) ObserveQueueDepth(depth int) {
	o.queueDepth.Set(float64(depth))
}

func (o *PrometheusObserver) ObserveHeartbeatFailures(count uint8) {
	o.heartbeatFailures.Set(float64(count))
}

func (o *PrometheusObserver) ObserveSNMPRequest(pduKind string, errStatus int32) {
	o.snmpRequestsTotal.WithLabelValues(pduKind, statusLabel(errStatus)).Inc()
}

func statusLabel(status int32) string {
	switch status {
	case 0:
		return "noError"
	case 2:
		return "noSuchName"
	case 5:
		return "genErr"
	default:
		return "unknown"
	}
}

var _ interfaces.Observer = (*PrometheusObserver)(nil)
