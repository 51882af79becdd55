package upsbridge

import (
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/metrics"
)

// Observer is the public alias for the metrics-collection interface
// implemented by the engine and SNMP responder's instrumentation points.
type Observer = interfaces.Observer

// NoOpObserver discards all observations; used when Options.Observer is
// left nil.
type NoOpObserver = interfaces.NoOpObserver

// NewObserver returns a prometheus-backed Observer with its own private
// registry. Callers that want to scrape it can reach the registry via
// (*metrics.PrometheusObserver).Gatherer on the concrete return value.
func NewObserver() *metrics.PrometheusObserver {
	return metrics.NewPrometheusObserver()
}
