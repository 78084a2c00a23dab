// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// UnknownForm labels webhook requests whose form could not be resolved.
const UnknownForm = "unknown"

// RelayMetrics exposes counters and histograms for the webhook pipeline and monitoring loop.
// A nil *RelayMetrics is valid and records nothing.
type RelayMetrics struct {
	webhooksTotal     *prometheus.CounterVec
	sendsTotal        *prometheus.CounterVec
	pipelineLatency   *prometheus.HistogramVec
	monitorChecks     *prometheus.CounterVec
	monitorTransition *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total webhook invocations by form and response status",
		}, []string{"form", "status"}),
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "sends_total",
			Help:      "Total provider sends by outcome",
		}, []string{"outcome"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"form"}),
		monitorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Total provider status checks by observed state",
		}, []string{"connected"}),
		monitorTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "transitions_total",
			Help:      "Total provider connectivity transitions",
		}, []string{"to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reg.MustRegister(m.webhooksTotal, m.sendsTotal, m.pipelineLatency, m.monitorChecks, m.monitorTransition)

	return m
}

func (m *RelayMetrics) ObserveWebhook(form string, status int, seconds float64) {
	if m == nil {
		return
	}

	form = strings.Clone(form)

	m.webhooksTotal.WithLabelValues(form, statusClass(status)).Inc()
	m.pipelineLatency.WithLabelValues(form).Observe(seconds)
}

func (m *RelayMetrics) ObserveSend(success bool) {
	if m == nil {
		return
	}

	outcome := "failure"
	if success {
		outcome = "success"
	}

	m.sendsTotal.WithLabelValues(outcome).Inc()
}

func (m *RelayMetrics) ObserveMonitorCheck(connected, transitioned bool) {
	if m == nil {
		return
	}

	label := boolLabel(connected)
	m.monitorChecks.WithLabelValues(label).Inc()

	if transitioned {
		to := "disconnected"
		if connected {
			to = "connected"
		}

		m.monitorTransition.WithLabelValues(to).Inc()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status == 207:
		return "207"
	default:
		return "2xx"
	}
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}

	return "false"
}
