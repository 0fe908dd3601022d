package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRun("webhook", "success")
	m.RecordRun("webhook", "success")
	m.RecordRun("api", "provider_error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("webhook", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("api", "provider_error")))
}

func TestRecordDelivery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordDelivery("whatsapp", true)
	m.RecordDelivery("whatsapp", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("whatsapp", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("whatsapp", "failure")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun("webhook", "success")
		m.RecordCompletion("OpenRouter", "success", time.Second)
		m.RecordDelivery("telegram", true)
		m.RecordHTTP("/webhook", "200")
	})
}
