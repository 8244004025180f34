package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	CompletionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentloop_completion_calls_total",
			Help: "Total number of completion endpoint calls",
		},
		[]string{"model", "status"},
	)

	CompletionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentloop_completion_latency_seconds",
			Help:    "Completion round trip latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model"},
	)

	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentloop_tool_calls_total",
			Help: "Total number of tool dispatches",
		},
		[]string{"tool", "status"}, // status: success|error|unknown
	)

	ToolOutputTruncations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentloop_tool_output_truncations_total",
			Help: "Tool results cut to the output bound before re-injection",
		},
		[]string{"tool"},
	)

	Turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentloop_turns_total",
			Help: "Completed agent turns by outcome",
		},
		[]string{"outcome"}, // outcome: answered|tool_answered|unknown_tool|error
	)

	MemoryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentloop_memory_requests_total",
			Help: "Memory service HTTP requests",
		},
		[]string{"route", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		CompletionCalls,
		CompletionLatency,
		ToolCalls,
		ToolOutputTruncations,
		Turns,
		MemoryRequests,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCompletion records one completion round trip.
func ObserveCompletion(model string, started time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	CompletionCalls.WithLabelValues(model, status).Inc()
	CompletionLatency.WithLabelValues(model).Observe(time.Since(started).Seconds())
}
