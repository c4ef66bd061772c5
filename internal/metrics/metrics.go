// Package metrics exposes guard decisions and learning state as
// Prometheus metrics. All methods are safe on a nil *Metrics, which
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gzhole/personaguard/internal/persona"
)

const metricsNamespace = "personaguard"

type Metrics struct {
	decisions        *prometheus.CounterVec
	signals          *prometheus.CounterVec
	adaptations      *prometheus.CounterVec
	processDuration  prometheus.Histogram
	strength         prometheus.Gauge
	personaWordRatio prometheus.Gauge
	symbolRatio      prometheus.Gauge
}

// New creates the guard metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decisions_total",
			Help:      "Exchanges processed by action and reason",
		}, []string{"action", "reason"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "threat_signals_total",
			Help:      "Threat detector signals fired by signal ID",
		}, []string{"signal"}),
		adaptations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "adaptations_total",
			Help:      "Threshold adaptations by direction",
		}, []string{"direction"}),
		processDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent deciding one exchange",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		strength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "personality_strength",
			Help:      "Success fraction of the most recent exchanges",
		}),
		personaWordRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "threshold",
			Name:      "min_persona_word_ratio",
			Help:      "Effective minimum persona word ratio",
		}),
		symbolRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "threshold",
			Name:      "min_symbol_ratio",
			Help:      "Effective minimum symbol ratio",
		}),
	}

	reg.MustRegister(
		m.decisions,
		m.signals,
		m.adaptations,
		m.processDuration,
		m.strength,
		m.personaWordRatio,
		m.symbolRatio,
	)
	return m
}

func (m *Metrics) ObserveDecision(action, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(action, reason).Inc()
	m.processDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSignals(ids []string) {
	if m == nil {
		return
	}
	for _, id := range ids {
		m.signals.WithLabelValues(id).Inc()
	}
}

func (m *Metrics) ObserveAdaptation(direction string) {
	if m == nil {
		return
	}
	m.adaptations.WithLabelValues(direction).Inc()
}

// SetState publishes the current strength and effective thresholds.
func (m *Metrics) SetState(strength float64, th persona.Thresholds) {
	if m == nil {
		return
	}
	m.strength.Set(strength)
	m.personaWordRatio.Set(th.MinPersonaWordRatio)
	m.symbolRatio.Set(th.MinSymbolRatio)
}
