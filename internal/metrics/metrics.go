// Package metrics provides Prometheus metrics for the editing engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for escrito
type Metrics struct {
	Registry *prometheus.Registry

	// Resolution pipeline
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	CacheLookupsTotal  *prometheus.CounterVec
	GeneratorCalls     *prometheus.CounterVec
	RejectedGenerative prometheus.Counter

	// Document edits
	EditsTotal           *prometheus.CounterVec
	PersistFailuresTotal prometheus.Counter
	SessionsActive       prometheus.Gauge
}

// NewMetrics creates all metrics on a private registry so several engines
// can live in one process (tests build many).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.ResolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrito_resolutions_total",
			Help: "Instructions resolved, by scope and winning tier",
		},
		[]string{"scope", "tier"},
	)

	m.ResolutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "escrito_resolution_duration_seconds",
			Help:    "Time spent resolving an instruction",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"scope", "tier"},
	)

	m.CacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrito_cache_lookups_total",
			Help: "Resolution cache lookups by result",
		},
		[]string{"result"},
	)

	m.GeneratorCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrito_generator_calls_total",
			Help: "Calls to the text-generation collaborator by model and status",
		},
		[]string{"model", "status"},
	)

	m.RejectedGenerative = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "escrito_generative_rejections_total",
			Help: "Generated rewrites rejected by the token-delta guard",
		},
	)

	m.EditsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrito_edits_total",
			Help: "Edit requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.PersistFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "escrito_persist_failures_total",
			Help: "Failed saves to the record store",
		},
	)

	m.SessionsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "escrito_sessions_active",
			Help: "Structured documents held in memory",
		},
	)

	return m
}

// RecordResolution records which tier produced a resolution
func (m *Metrics) RecordResolution(scope, tier string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(scope, tier).Inc()
	m.ResolutionDuration.WithLabelValues(scope, tier).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordGeneratorCall records a call to an LLM model
func (m *Metrics) RecordGeneratorCall(model string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GeneratorCalls.WithLabelValues(model, status).Inc()
}

// RecordRejection counts a generated rewrite thrown away by the guard
func (m *Metrics) RecordRejection() {
	if m == nil {
		return
	}
	m.RejectedGenerative.Inc()
}

// RecordEdit records an edit request outcome (applied, noop, error)
func (m *Metrics) RecordEdit(operation, outcome string) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordPersistFailure counts a failed save
func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.PersistFailuresTotal.Inc()
}

// SetSessions updates the live session gauge
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}
