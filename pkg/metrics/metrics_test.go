package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRelayMetrics_Observe(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.ObserveWebhook("contato", 200, 0.2)
	m.ObserveWebhook("contato", 207, 0.3)
	m.ObserveWebhook("missing", 404, 0.01)
	m.ObserveSend(true)
	m.ObserveSend(false)
	m.ObserveSend(false)
	m.ObserveMonitorCheck(false, true)
	m.ObserveMonitorCheck(false, false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("contato", "2xx")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("contato", "207")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("missing", "4xx")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.sendsTotal.WithLabelValues("failure")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.monitorChecks.WithLabelValues("false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.monitorTransition.WithLabelValues("disconnected")), 0)
}

func TestRelayMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *RelayMetrics

	assert.NotPanics(t, func() {
		m.ObserveWebhook("x", 500, 1)
		m.ObserveSend(true)
		m.ObserveMonitorCheck(true, true)
	})
}
