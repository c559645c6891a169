package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Changes *prometheus.CounterVec
	Hits    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_blacklist_changes_total",
			Help: "Blacklist additions and removals",
		}, []string{"op"}),
		Hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_blacklist_hits_total",
			Help: "Blacklist checks that found an active ban",
		}),
	}
}

func (m *Metrics) IncrementAdded() {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues("add").Inc()
}

func (m *Metrics) IncrementRemoved() {
	if m == nil {
		return
	}
	m.Changes.WithLabelValues("remove").Inc()
}

func (m *Metrics) IncrementHit() {
	if m == nil {
		return
	}
	m.Hits.Inc()
}
