package metrics

import (
	"mercator-hq/overseer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// InterventionMetrics tracks the human review queue and the guardrail set.
//
// Metrics:
//   - overseer_governance_interventions_total: created, resolved and expired interventions
//   - overseer_governance_interventions_pending: interventions awaiting review
//   - overseer_governance_guardrails: guardrails by state (enabled, total)
type InterventionMetrics struct {
	eventsTotal *prometheus.CounterVec
	pending     prometheus.Gauge
	guardrails  *prometheus.GaugeVec
}

// NewInterventionMetrics creates and registers intervention metrics.
func NewInterventionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *InterventionMetrics {
	im := &InterventionMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "interventions_total",
				Help:      "Total number of intervention lifecycle events",
			},
			[]string{"event", "priority"},
		),

		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "interventions_pending",
				Help:      "Number of interventions awaiting review",
			},
		),

		guardrails: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrails",
				Help:      "Number of registered guardrails by state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(im.eventsTotal, im.pending, im.guardrails)

	return im
}

// RecordEvent records an intervention lifecycle event.
func (im *InterventionMetrics) RecordEvent(event, priority string) {
	im.eventsTotal.WithLabelValues(event, priority).Inc()
}

// SetPending sets the pending gauge.
func (im *InterventionMetrics) SetPending(n int) {
	im.pending.Set(float64(n))
}

// SetGuardrails sets the guardrail gauges.
func (im *InterventionMetrics) SetGuardrails(enabled, total int) {
	im.guardrails.WithLabelValues("enabled").Set(float64(enabled))
	im.guardrails.WithLabelValues("total").Set(float64(total))
}
