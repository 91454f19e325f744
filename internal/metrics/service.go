package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceMetrics contains the metrics of the reference identity service.
type ServiceMetrics struct {
	AttendanceEvents *prometheus.CounterVec
	CooldownHits     prometheus.Counter
	Sightings        *prometheus.CounterVec
	IndexSize        prometheus.Gauge
}

// NewServiceMetrics creates and registers the service metrics.
func NewServiceMetrics(registry prometheus.Registerer) (*ServiceMetrics, error) {
	m := &ServiceMetrics{
		AttendanceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "attendance_events_total",
			Help:      "Recorded attendance events, by kind (in, out)",
		}, []string{"kind"}),
		CooldownHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "cooldown_hits_total",
			Help:      "Last-event lookups answered with cooldown",
		}),
		Sightings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "sightings_total",
			Help:      "Unknown sightings received, by outcome (new, repeat)",
		}, []string{"outcome"}),
		IndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "sighting_index_size",
			Help:      "Sightings held in the in-memory re-identification index",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register service metrics: %w", err)
	}
	return m, nil
}

// Describe implements the prometheus.Collector interface.
func (m *ServiceMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.AttendanceEvents.Describe(ch)
	ch <- m.CooldownHits.Desc()
	m.Sightings.Describe(ch)
	ch <- m.IndexSize.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *ServiceMetrics) Collect(ch chan<- prometheus.Metric) {
	m.AttendanceEvents.Collect(ch)
	ch <- m.CooldownHits
	m.Sightings.Collect(ch)
	ch <- m.IndexSize
}

// IncAttendance counts a recorded in/out event
func (m *ServiceMetrics) IncAttendance(kind string) {
	if m == nil {
		return
	}
	m.AttendanceEvents.WithLabelValues(kind).Inc()
}

// IncCooldown counts a cooldown answer
func (m *ServiceMetrics) IncCooldown() {
	if m == nil {
		return
	}
	m.CooldownHits.Inc()
}

// IncSighting counts a received sighting
func (m *ServiceMetrics) IncSighting(isNew bool) {
	if m == nil {
		return
	}
	outcome := "repeat"
	if isNew {
		outcome = "new"
	}
	m.Sightings.WithLabelValues(outcome).Inc()
}

// SetIndexSize updates the index size gauge
func (m *ServiceMetrics) SetIndexSize(n int) {
	if m == nil {
		return
	}
	m.IndexSize.Set(float64(n))
}
