package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := NewMetrics()

	m.RecordEvent("map_direct", "AAAA")
	m.RecordEvent("map_direct", "AAAA")
	m.RecordEmission("map_direct", "AAAA")
	m.RecordReasoningCall(true)
	m.RecordReasoningCall(false)
	m.RecordReasoningRetry()
	m.RecordSynthesis("filter", true)
	m.OperatorStarted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsReceived.WithLabelValues("map_direct", "AAAA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emissions.WithLabelValues("map_direct", "AAAA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReasoningCalls.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReasoningRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Syntheses.WithLabelValues("filter", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperatorsRunning))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvent("f", "s")
		m.RecordEmission("f", "s")
		m.RecordHandlerError("f", "numeric")
		m.ObserveHandler("f", time.Millisecond)
		m.RecordReasoningCall(true)
		m.RecordReasoningRetry()
		m.RecordSynthesis("map", false)
		m.OperatorStarted()
		m.OperatorStopped()
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordEmission("filter_generate", "BBBB")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stream_operators_operator_emissions_total")
}
