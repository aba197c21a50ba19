package ingest

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/targodan/UberSpatchBoard/metric"
)

// Metrics holds Prometheus metrics for the ingestion pipeline.
type Metrics struct {
	consumed   prometheus.Counter
	results    *prometheus.CounterVec
	dropped    prometheus.Counter
	queueDepth prometheus.Gauge
}

// newMetrics creates and registers ingestion metrics. Returns nil when
// no registry is provided; all call sites treat nil as "metrics off".
func newMetrics(registry *metric.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usb",
			Subsystem: "ingest",
			Name:      "messages_consumed_total",
			Help:      "Messages drained from the queue into the parser",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usb",
			Subsystem: "ingest",
			Name:      "parse_results_total",
			Help:      "Parse outcomes by result kind",
		}, []string{"result"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "usb",
			Subsystem: "ingest",
			Name:      "messages_dropped_total",
			Help:      "Injected messages dropped because the queue was full",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "usb",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Messages currently waiting in the queue",
		}),
	}

	_ = registry.RegisterCounter("ingest", "consumed", metrics.consumed)
	_ = registry.RegisterCounterVec("ingest", "results", metrics.results)
	_ = registry.RegisterCounter("ingest", "dropped", metrics.dropped)
	_ = registry.RegisterGauge("ingest", "queue_depth", metrics.queueDepth)

	return metrics
}

func (m *Metrics) observeConsumed(result string, depth int) {
	if m == nil {
		return
	}
	m.consumed.Inc()
	m.results.WithLabelValues(result).Inc()
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) observeDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
