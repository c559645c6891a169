package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks society and building provisioning.
type Metrics struct {
	SocietiesCreated   prometheus.Counter
	BuildingsCreated   prometheus.Counter
	SlugLookupDuration prometheus.Histogram
}

// New registers the tenant metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SocietiesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_societies_created_total",
			Help: "Total number of societies created",
		}),
		BuildingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_buildings_created_total",
			Help: "Total number of buildings created",
		}),
		SlugLookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_society_slug_lookup_duration_seconds",
			Help:    "Duration of public society lookups by slug (signup path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementSocietyCreated() {
	if m == nil {
		return
	}
	m.SocietiesCreated.Inc()
}

func (m *Metrics) IncrementBuildingCreated() {
	if m == nil {
		return
	}
	m.BuildingsCreated.Inc()
}

// ObserveSlugLookup records the duration since start.
func (m *Metrics) ObserveSlugLookup(start time.Time) {
	if m == nil {
		return
	}
	m.SlugLookupDuration.Observe(time.Since(start).Seconds())
}
