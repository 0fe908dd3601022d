// Package metrics provides Prometheus collectors for the chatbot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline, provider, delivery and HTTP collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PipelineRuns       *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	Deliveries         *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbot_pipeline_runs_total",
				Help: "Pipeline runs by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptbot_completion_duration_seconds",
				Help:    "Duration of completion provider calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "kind"},
		),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbot_delivery_total",
				Help: "Outbound deliveries by channel and result",
			},
			[]string{"channel", "result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptbot_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}
}

func (m *Metrics) RecordRun(channel, outcome string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) RecordCompletion(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.CompletionDuration.WithLabelValues(provider, kind).Observe(d.Seconds())
}

func (m *Metrics) RecordDelivery(channel string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Deliveries.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) RecordHTTP(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
}
