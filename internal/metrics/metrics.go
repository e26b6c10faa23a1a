// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics declares the Prometheus collectors exported by the
// search aggregator, the research orchestrator, and the language-model client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts provider dispatches by outcome.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_provider_requests_total",
			Help: "Total number of provider searches",
		},
		[]string{"source", "status"}, // status: success, error, timeout
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deep_research_provider_duration_seconds",
			Help:    "Provider search latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"source", "result"}, // result: hit, miss
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_llm_calls_total",
			Help: "Language-model calls by research phase",
		},
		[]string{"phase", "status"},
	)

	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_runs_total",
			Help: "Deep-research runs by depth and outcome",
		},
		[]string{"depth", "status"},
	)

	Steps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_steps_total",
			Help: "Executed research steps",
		},
		[]string{"kind"}, // kind: planned, follow_up
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deep_research_deliveries_total",
			Help: "Report deliveries by destination kind and outcome",
		},
		[]string{"kind", "status"},
	)
)

// Status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// RecordProvider records one provider dispatch.
func RecordProvider(source, status string, elapsed time.Duration) {
	ProviderRequests.WithLabelValues(source, status).Inc()
	ProviderDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// RecordDelivery records one report delivery.
func RecordDelivery(kind string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	Deliveries.WithLabelValues(kind, status).Inc()
}

// RecordLLMCall records one language-model call for a research phase.
func RecordLLMCall(phase string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	LLMCalls.WithLabelValues(phase, status).Inc()
}
