package metrics

import (
	"time"

	"mercator-hq/overseer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks decision engine activity.
//
// Metrics:
//   - overseer_governance_decisions_total: decisions by status
//   - overseer_governance_decision_risk_score: risk score distribution
//   - overseer_governance_evaluation_duration_seconds: evaluation time
//   - overseer_governance_guardrail_triggers_total: triggers by guardrail
//   - overseer_governance_evaluation_faults_total: guardrails that could not be evaluated
type DecisionMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	riskScore          prometheus.Histogram
	evaluationDuration prometheus.Histogram
	triggersTotal      *prometheus.CounterVec
	faultsTotal        *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of logged decisions",
			},
			[]string{"status"},
		),

		riskScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_risk_score",
				Help:      "Risk score of logged decisions",
				Buckets:   prometheus.LinearBuckets(10, 10, 10), // 10 to 100
			},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of guardrail evaluation in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
		),

		triggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_triggers_total",
				Help:      "Total number of guardrail triggers",
			},
			[]string{"guardrail_id"},
		),

		faultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_faults_total",
				Help:      "Total number of guardrails that failed to evaluate",
			},
			[]string{"guardrail_id"},
		),
	}

	registry.MustRegister(
		dm.decisionsTotal,
		dm.riskScore,
		dm.evaluationDuration,
		dm.triggersTotal,
		dm.faultsTotal,
	)

	return dm
}

// RecordDecision records one logged decision.
func (dm *DecisionMetrics) RecordDecision(status string, riskScore int, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(status).Inc()
	dm.riskScore.Observe(float64(riskScore))
	dm.evaluationDuration.Observe(duration.Seconds())
}

// RecordTrigger records one guardrail trigger.
func (dm *DecisionMetrics) RecordTrigger(guardrailID string) {
	dm.triggersTotal.WithLabelValues(guardrailID).Inc()
}

// RecordFault records a guardrail evaluation fault.
func (dm *DecisionMetrics) RecordFault(guardrailID string) {
	dm.faultsTotal.WithLabelValues(guardrailID).Inc()
}
