package triage

import "github.com/prometheus/client_golang/prometheus"

// Classification sources.
const (
	SourceTriage  = "triage"
	SourcePreview = "preview"
)

// Metrics holds Prometheus metrics for triage and gating.
type Metrics struct {
	ClassificationsTotal *prometheus.CounterVec
	AuthorizationsTotal  *prometheus.CounterVec
	AnomaliesTotal       *prometheus.CounterVec
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_triage_classifications_total",
			Help: "Vitals classifications by source and resulting priority.",
		}, []string{"source", "priority"}),
		AuthorizationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_triage_authorizations_total",
			Help: "Gate decisions by action and result.",
		}, []string{"action", "result"}),
		AnomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ward_vitals_anomalies_total",
			Help: "Monitoring anomalies detected by kind.",
		}, []string{"anomaly"}),
	}

	reg.MustRegister(
		m.ClassificationsTotal,
		m.AuthorizationsTotal,
		m.AnomaliesTotal,
	)

	return m
}

func (m *Metrics) observeClassification(source string, p Priority) {
	m.ClassificationsTotal.WithLabelValues(source, string(p)).Inc()
}

func (m *Metrics) observeAuthorization(a Action, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.AuthorizationsTotal.WithLabelValues(string(a), result).Inc()
}

// ObservePreview counts a classification made outside of a triage submission.
func (m *Metrics) ObservePreview(p Priority) {
	m.observeClassification(SourcePreview, p)
}

// ObserveAnomalies counts each anomaly found in a monitoring reading.
func (m *Metrics) ObserveAnomalies(anomalies []Anomaly) {
	for _, a := range anomalies {
		m.AnomaliesTotal.WithLabelValues(string(a)).Inc()
	}
}
