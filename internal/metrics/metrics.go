// Package metrics exposes the village's daily activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/engine"
)

// Metrics holds the village's Prometheus metrics. It implements
// engine.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	Days          prometheus.Counter
	Outcomes      *prometheus.CounterVec
	Injuries      *prometheus.CounterVec
	Events        *prometheus.CounterVec
	RumorsCreated prometheus.Counter
	RumorsDecayed prometheus.Counter

	// Quality of resolved work, per activity
	Quality *prometheus.HistogramVec

	// Village state at nightfall
	Day             prometheus.Gauge
	Food            prometheus.Gauge
	Materials       prometheus.Gauge
	Happiness       prometheus.Gauge
	RumorsActive    prometheus.Gauge
	Injured         *prometheus.GaugeVec
	Inertia         *prometheus.GaugeVec
	BuildingQuality prometheus.Gauge
}

// New creates the metrics on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Days: f.NewCounter(prometheus.CounterOpts{
			Name: "hamlet_days_total",
			Help: "Total number of simulated days",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hamlet_activity_outcomes_total",
			Help: "Resolved activities by activity and result",
		}, []string{"activity", "result"}),
		Injuries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hamlet_injuries_total",
			Help: "Injuries by severity",
		}, []string{"severity"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hamlet_events_total",
			Help: "Village events by category",
		}, []string{"category"}),
		RumorsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "hamlet_rumors_created_total",
			Help: "Total number of rumors started or passed on",
		}),
		RumorsDecayed: f.NewCounter(prometheus.CounterOpts{
			Name: "hamlet_rumors_decayed_total",
			Help: "Total number of rumors forgotten",
		}),

		Quality: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hamlet_activity_quality",
			Help:    "Quality of resolved work",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"activity"}),

		Day: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_day",
			Help: "Last simulated day",
		}),
		Food: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_food",
			Help: "Food in the stores",
		}),
		Materials: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_materials",
			Help: "Building materials in the stores",
		}),
		Happiness: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_happiness",
			Help: "Village happiness, 0 to 1",
		}),
		RumorsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_rumors_active",
			Help: "Rumors currently circulating",
		}),
		Injured: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hamlet_injured_villagers",
			Help: "Villagers carrying an injury, by severity",
		}, []string{"severity"}),
		Inertia: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hamlet_average_inertia",
			Help: "Average inertia across villagers, by activity",
		}, []string{"activity"}),
		BuildingQuality: f.NewGauge(prometheus.GaugeOpts{
			Name: "hamlet_building_quality",
			Help: "Average quality of the village's buildings",
		}),
	}
}

// ObserveDay records a finished day.
func (m *Metrics) ObserveDay(r engine.DayReport) {
	m.Days.Inc()
	for _, o := range r.Outcomes {
		if o.NoOp {
			continue
		}
		m.Outcomes.WithLabelValues(string(o.Activity), o.Result).Inc()
		m.Quality.WithLabelValues(string(o.Activity)).Observe(o.Quality)
		for _, w := range o.Injuries {
			m.Injuries.WithLabelValues(w.Severity.String()).Inc()
		}
	}
	for _, e := range r.Events {
		m.Events.WithLabelValues(e.Category).Inc()
	}
	m.RumorsCreated.Add(float64(r.RumorsCreated))
	m.RumorsDecayed.Add(float64(r.RumorsDecayed))

	m.Day.Set(float64(r.Day))
	m.Food.Set(r.Food)
	m.Materials.Set(r.Materials)
	m.Happiness.Set(r.Happiness)
	m.RumorsActive.Set(float64(r.RumorsActive))
	m.Injured.WithLabelValues(agents.InjuryLight.String()).Set(float64(r.Injured))
	m.Injured.WithLabelValues(agents.InjurySevere.String()).Set(float64(r.SevereInjured))
	for a, v := range r.AvgInertia {
		m.Inertia.WithLabelValues(string(a)).Set(v)
	}
	m.BuildingQuality.Set(r.BuildingQuality)
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
