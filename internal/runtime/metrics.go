package runtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks reactor routing activity: tasks dispatched to an agent
// mailbox, events dropped off the observer-facing external queue, and the
// current subscriber count per topic. Grounded on the same
// observability.Metrics shape the agent package's Metrics narrows, scoped
// here to what the reactor's own routing loop produces.
type Metrics struct {
	DispatchCounter *prometheus.CounterVec
	DroppedCounter  prometheus.Counter
	SubscriberGauge *prometheus.GaugeVec
}

// NewMetrics registers a fresh set of reactor instruments. Call through
// GlobalMetrics in production code — a second NewMetrics call in the same
// process panics on duplicate registration, promauto's contract.
func NewMetrics() *Metrics {
	return &Metrics{
		DispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_runtime_dispatched_tasks_total",
				Help: "Total number of tasks dispatched to an agent mailbox, by outcome",
			},
			[]string{"status"},
		),
		DroppedCounter: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nexus_runtime_dropped_events_total",
				Help: "Total number of events dropped from the external queue because no observer was draining it",
			},
		),
		SubscriberGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nexus_runtime_topic_subscribers",
				Help: "Current number of subscribers registered for a topic",
			},
			[]string{"topic"},
		),
	}
}

// RecordDispatch records one dispatch attempt's outcome ("ok", "unknown_actor", or "shutdown").
func (m *Metrics) RecordDispatch(status string) {
	if m == nil {
		return
	}
	m.DispatchCounter.WithLabelValues(status).Inc()
}

// RecordDropped records one event that the external queue could not accept.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.DroppedCounter.Inc()
}

// SetSubscriberCount sets the current subscriber count for a topic key.
func (m *Metrics) SetSubscriberCount(topic string, count int) {
	if m == nil {
		return
	}
	m.SubscriberGauge.WithLabelValues(topic).Set(float64(count))
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// GlobalMetrics returns the process-wide runtime Metrics instance, building
// it on first use. Every Runtime in a process shares this one instance —
// constructing one per runtime would panic the second time a test or
// caller builds a second runtime, since promauto registers against the
// default Prometheus registry.
func GlobalMetrics() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}
