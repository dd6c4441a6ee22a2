package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 应用级 Prometheus 指标
// 所有方法对 nil 接收者安全，测试中可以不注入
type Metrics struct {
	ProfilesProvisioned  prometheus.Counter
	ProvisionConflicts   prometheus.Counter
	GateDecisions        *prometheus.CounterVec
	IdentityEvents       *prometheus.CounterVec
	SessionStreamsActive prometheus.Gauge
}

// New 在给定 registerer 上注册指标（生产用 prometheus.DefaultRegisterer）
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProfilesProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "profilegate_profiles_provisioned_total",
			Help: "Default profiles created on first resolution",
		}),
		ProvisionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "profilegate_provision_conflicts_total",
			Help: "Concurrent first resolutions that lost the insert race and re-fetched",
		}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilegate_gate_decisions_total",
			Help: "Authorization gate decisions by destination and outcome",
		}, []string{"destination", "outcome"}),
		IdentityEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilegate_identity_events_total",
			Help: "Identity change events delivered to local subscribers",
		}, []string{"type"}),
		SessionStreamsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "profilegate_session_streams_active",
			Help: "Open session-state WebSocket streams",
		}),
	}
}

func (m *Metrics) IncProvisioned() {
	if m == nil {
		return
	}
	m.ProfilesProvisioned.Inc()
}

func (m *Metrics) IncConflict() {
	if m == nil {
		return
	}
	m.ProvisionConflicts.Inc()
}

func (m *Metrics) ObserveDecision(destination, outcome string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(destination, outcome).Inc()
}

func (m *Metrics) ObserveIdentityEvent(eventType string) {
	if m == nil {
		return
	}
	m.IdentityEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.SessionStreamsActive.Inc()
}

func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.SessionStreamsActive.Dec()
}
