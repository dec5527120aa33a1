package metrics

import "github.com/prometheus/client_golang/prometheus"

// BridgeMetrics exposes counters for the webhook bridge.
type BridgeMetrics struct {
	inboundTotal  *prometheus.CounterVec
	outcomeTotal  *prometheus.CounterVec
	backendTotal  *prometheus.CounterVec
	outboundTotal *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
}

func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayline",
			Subsystem: "bridge",
			Name:      "inbound_events_total",
			Help:      "Total inbound LINE events by kind",
		}, []string{"kind"}),
		outcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayline",
			Subsystem: "bridge",
			Name:      "turn_outcomes_total",
			Help:      "Total conversation turns by terminal state and backend dispatch",
		}, []string{"state", "dispatched"}),
		backendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayline",
			Subsystem: "backend",
			Name:      "queries_total",
			Help:      "Total scheduling backend queries by command and result",
		}, []string{"command", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bayline",
			Subsystem: "bridge",
			Name:      "outbound_total",
			Help:      "Total outbound LINE sends by primitive",
		}, []string{"primitive", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bayline",
			Subsystem: "bridge",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn including LLM and backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outcomeTotal, m.backendTotal, m.outboundTotal, m.turnLatency)
	return m
}

func (m *BridgeMetrics) ObserveInbound(kind string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind).Inc()
}

// ObserveOutcome records a finished turn. dispatched is empty when no
// backend query ran.
func (m *BridgeMetrics) ObserveOutcome(state, dispatched string, seconds float64) {
	if m == nil {
		return
	}
	if dispatched == "" {
		dispatched = "none"
	}
	m.outcomeTotal.WithLabelValues(state, dispatched).Inc()
	m.turnLatency.WithLabelValues(state).Observe(seconds)
}

func (m *BridgeMetrics) ObserveBackendQuery(command, status string) {
	if m == nil {
		return
	}
	m.backendTotal.WithLabelValues(command, status).Inc()
}

func (m *BridgeMetrics) ObserveOutbound(primitive, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(primitive, status).Inc()
}
