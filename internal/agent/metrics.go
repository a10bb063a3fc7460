package agent

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks turn engine and tool processor activity: turn throughput
// and latency by outcome, LLM request latency by provider, and tool
// execution counts/latency by tool name. Grounded on the teacher's
// observability.Metrics — a promauto-built struct of CounterVec/
// HistogramVec fields — narrowed to the counters this core's own
// components (not the surrounding application) can actually produce.
type Metrics struct {
	TurnCounter        *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
	LLMRequestCounter  *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	ToolCounter        *prometheus.CounterVec
	ToolDuration       *prometheus.HistogramVec
}

// NewMetrics registers a fresh set of turn-engine/tool-processor
// instruments. Call through GlobalMetrics in production code — a second
// NewMetrics call in the same process panics on duplicate registration,
// which is promauto's contract, not a bug.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_agent_turns_total",
				Help: "Total number of turn engine turns by outcome",
			},
			[]string{"status"},
		),
		TurnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_agent_turn_duration_seconds",
				Help:    "Duration of turn engine turns in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_agent_llm_requests_total",
				Help: "Total number of LLM requests issued by the turn engine",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_agent_llm_request_duration_seconds",
				Help:    "Duration of LLM requests issued by the turn engine",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		ToolCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nexus_agent_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),
		ToolDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nexus_agent_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),
	}
}

// RecordTurn records one turn's outcome and latency.
func (m *Metrics) RecordTurn(status string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnCounter.WithLabelValues(status).Inc()
	m.TurnDuration.WithLabelValues(status).Observe(seconds)
}

// RecordLLMRequest records one LLM call's outcome and latency.
func (m *Metrics) RecordLLMRequest(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestCounter.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordToolExecution records one tool call's outcome and latency.
func (m *Metrics) RecordToolExecution(toolName, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ToolCounter.WithLabelValues(toolName, status).Inc()
	m.ToolDuration.WithLabelValues(toolName).Observe(seconds)
}

var (
	globalMetrics     *Metrics
	globalMetricsOnce sync.Once
)

// GlobalMetrics returns the process-wide agent Metrics instance, building
// it on first use. Every TurnEngine/ToolProcessor in a process shares this
// one instance — constructing one per engine would panic the second time a
// test or caller builds a second engine, since promauto registers against
// the default Prometheus registry.
func GlobalMetrics() *Metrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}
