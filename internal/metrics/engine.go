// Package metrics provides Prometheus collectors for the monitoring engine and
// the reference service. Every method is safe on a nil receiver so components
// can run without metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gatewatch"

// EngineMetrics contains all Prometheus metrics related to the monitoring loop.
type EngineMetrics struct {
	Cycles            prometheus.Counter
	CyclesSkipped     prometheus.Counter
	CycleDuration     prometheus.Histogram
	Detections        *prometheus.CounterVec
	PresentIdentities prometheus.Gauge
	AbsenceStreak     prometheus.Gauge
	RoomClears        prometheus.Counter
	Toggles           *prometheus.CounterVec
	UnknownReports    *prometheus.CounterVec
	Errors            *prometheus.CounterVec
}

// NewEngineMetrics creates and registers the engine metrics.
// It returns an error if metric registration fails.
func NewEngineMetrics(registry prometheus.Registerer) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Total number of completed monitoring cycles",
	})
	m.CyclesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_skipped_total",
		Help:      "Ticks skipped because the previous cycle was still running",
	})
	m.CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of monitoring cycles",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
	m.Detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detections_total",
		Help:      "Faces matched, by tier",
	}, []string{"tier"})
	m.PresentIdentities = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "present_identities",
		Help:      "Identities currently considered in view",
	})
	m.AbsenceStreak = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "absence_streak",
		Help:      "Consecutive cycles without any detection",
	})
	m.RoomClears = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "room_clears_total",
		Help:      "Times the presence set was cleared after sustained absence",
	})
	m.Toggles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_toggles_total",
		Help:      "Attendance toggles, by action (in, out, skipped, failed)",
	}, []string{"action"})
	m.UnknownReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unknown_reports_total",
		Help:      "Unknown face handling, by result (submitted, suppressed, failed)",
	}, []string{"result"})
	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Collaborator errors, by source (frame, detector, gallery)",
	}, []string{"source"})
}

// Describe implements the prometheus.Collector interface.
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.Cycles.Desc()
	ch <- m.CyclesSkipped.Desc()
	ch <- m.CycleDuration.Desc()
	m.Detections.Describe(ch)
	ch <- m.PresentIdentities.Desc()
	ch <- m.AbsenceStreak.Desc()
	ch <- m.RoomClears.Desc()
	m.Toggles.Describe(ch)
	m.UnknownReports.Describe(ch)
	m.Errors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.Cycles
	ch <- m.CyclesSkipped
	ch <- m.CycleDuration
	m.Detections.Collect(ch)
	ch <- m.PresentIdentities
	ch <- m.AbsenceStreak
	ch <- m.RoomClears
	m.Toggles.Collect(ch)
	m.UnknownReports.Collect(ch)
	m.Errors.Collect(ch)
}

// ObserveCycle records a finished cycle
func (m *EngineMetrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// IncSkipped counts a skipped tick
func (m *EngineMetrics) IncSkipped() {
	if m == nil {
		return
	}
	m.CyclesSkipped.Inc()
}

// AddDetection counts one match result of the given tier
func (m *EngineMetrics) AddDetection(tier string) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(tier).Inc()
}

// SetPresence updates the presence gauges
func (m *EngineMetrics) SetPresence(present, streak int) {
	if m == nil {
		return
	}
	m.PresentIdentities.Set(float64(present))
	m.AbsenceStreak.Set(float64(streak))
}

// IncRoomClear counts a room clear
func (m *EngineMetrics) IncRoomClear() {
	if m == nil {
		return
	}
	m.RoomClears.Inc()
}

// IncToggle counts an attendance toggle outcome
func (m *EngineMetrics) IncToggle(action string) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(action).Inc()
}

// IncUnknown counts an unknown face outcome
func (m *EngineMetrics) IncUnknown(result string) {
	if m == nil {
		return
	}
	m.UnknownReports.WithLabelValues(result).Inc()
}

// IncError counts a collaborator error
func (m *EngineMetrics) IncError(source string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(source).Inc()
}
