package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Search flow metrics: provider dispatch, pipeline stages, summaries.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_requests_total",
			Help:      "Provider calls by outcome",
		},
		[]string{"provider", "status"}, // success / empty / error / unconfigured
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"provider"},
	)

	ProviderRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_records_total",
			Help:      "Records mapped from provider responses",
		},
		[]string{"provider"},
	)

	PipelineDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pipeline_dropped_records_total",
			Help:      "Records removed by the aggregation pipeline",
		},
		[]string{"intent", "stage"}, // invalid_link / missing_date / past / duplicate
	)

	SummaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "summary_total",
			Help:      "Summaries by source",
		},
		[]string{"intent", "source"},
	)

	KnowledgeSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "knowledge_search_total",
			Help:      "Knowledge context lookups",
		},
		[]string{"status"},
	)

	RateLimitWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "outbound_ratelimit_wait_seconds",
			Help:      "Time spent waiting on outbound pacing limiters",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"target"},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chat_requests_total",
			Help:      "Handled chat queries by intent",
		},
		[]string{"intent"},
	)

	ChatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "chat_duration_seconds",
			Help:      "End-to-end chat handling time in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search flow metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderRecordsTotal,
		PipelineDroppedTotal,
		SummaryTotal,
		KnowledgeSearchTotal,
		RateLimitWaitSeconds,
		ChatRequestsTotal,
		ChatDuration,
	)
	searchMetricsRegistered = true
}

// ChatStats is a point-in-time view of chat latency and provider health.
type ChatStats struct {
	Requests       uint64
	AvgLatencyMs   float64
	ProviderErrors float64
	ProviderCalls  float64
}

// SnapshotChat reads the live collectors. It works whether or not they are registered.
func SnapshotChat() (ChatStats, error) {
	var m dto.Metric
	if err := ChatDuration.Write(&m); err != nil {
		return ChatStats{}, fmt.Errorf("read chat histogram: %w", err)
	}
	h := m.GetHistogram()

	stats := ChatStats{Requests: h.GetSampleCount()}
	if stats.Requests > 0 {
		stats.AvgLatencyMs = h.GetSampleSum() / float64(stats.Requests) * 1000
	}

	ch := make(chan prometheus.Metric, 32)
	go func() {
		ProviderRequestsTotal.Collect(ch)
		close(ch)
	}()
	for pm := range ch {
		var c dto.Metric
		if err := pm.Write(&c); err != nil {
			continue
		}
		v := c.GetCounter().GetValue()
		stats.ProviderCalls += v
		for _, lp := range c.GetLabel() {
			if lp.GetName() == "status" && lp.GetValue() == "error" {
				stats.ProviderErrors += v
			}
		}
	}
	return stats, nil
}
