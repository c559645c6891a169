package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the visit engine. A nil *Metrics records nothing.
type Metrics struct {
	Created     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Invites     *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_visits_created_total",
			Help: "Visits created, by kind (invitation or walkin)",
		}, []string{"kind"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_visit_transitions_total",
			Help: "Visit status transitions, by target status",
		}, []string{"to"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_checkin_rejections_total",
			Help: "Check-in attempts refused at the gate, by reason",
		}, []string{"reason"}),
		Invites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_whatsapp_invites_total",
			Help: "WhatsApp invitation sends, by outcome",
		}, []string{"outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatehouse_visit_operation_duration_seconds",
			Help:    "Latency of visit engine operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementCreated(kind string) {
	if m == nil {
		return
	}
	m.Created.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementTransition(to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to).Inc()
}

func (m *Metrics) IncrementRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementInvite(sent bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if sent {
		outcome = "sent"
	}
	m.Invites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDuration(op string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
