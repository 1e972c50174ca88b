package metrics

import (
	"sync"
	"time"

	"mercator-hq/overseer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherLabel replaces label values beyond the cardinality limit.
const OtherLabel = "other"

// DefaultMaxCardinality bounds the distinct guardrail ids tracked per metric.
const DefaultMaxCardinality = 1000

// Collector owns every Prometheus metric of the governance server. It
// implements the governance Observer interface, so the Service reports to it
// directly, and it is safe for concurrent use.
//
// Guardrail ids are user-supplied, so the per-guardrail series pass through
// a CardinalityLimiter and overflow into the "other" label.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decisionMetrics     *DecisionMetrics
	interventionMetrics *InterventionMetrics
	requestMetrics      *RequestMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with registry.
// A nil registry gets a fresh one.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
//	svc := governance.New(govCfg, governance.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		// Evaluation is in-memory predicate walking (100µs - 50ms)
		cfg.EvaluationDurationBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05}
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}

	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.interventionMetrics = NewInterventionMetrics(cfg, registry)
	c.requestMetrics = NewRequestMetrics(cfg, registry)

	return c
}

// ObserveDecision records a logged decision and each guardrail it triggered.
func (c *Collector) ObserveDecision(status string, riskScore int, triggered []string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordDecision(status, riskScore, duration)
	for _, id := range triggered {
		c.decisionMetrics.RecordTrigger(c.guardrailLabel(id))
	}
}

// ObserveEvaluationFault records a guardrail whose predicate failed.
func (c *Collector) ObserveEvaluationFault(guardrailID string) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordFault(c.guardrailLabel(guardrailID))
}

// ObserveIntervention records an intervention lifecycle event: "created",
// "resolved" or "expired".
func (c *Collector) ObserveIntervention(event, priority string) {
	if !c.config.Enabled {
		return
	}

	c.interventionMetrics.RecordEvent(event, priority)
}

// SetPendingInterventions sets the pending review gauge.
func (c *Collector) SetPendingInterventions(n int) {
	if !c.config.Enabled {
		return
	}

	c.interventionMetrics.SetPending(n)
}

// SetGuardrails sets the enabled and total guardrail gauges.
func (c *Collector) SetGuardrails(enabled, total int) {
	if !c.config.Enabled {
		return
	}

	c.interventionMetrics.SetGuardrails(enabled, total)
}

// RecordHTTPRequest records one API request. route is the route pattern, not
// the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.requestMetrics.RecordRequest(method, route, code, duration)
}

// RecordAuditWrite records the result of an audit storage write.
func (c *Collector) RecordAuditWrite(eventType string, err error) {
	if !c.config.Enabled {
		return
	}

	c.requestMetrics.RecordAuditWrite(eventType, err == nil)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) guardrailLabel(id string) string {
	if !c.cardinalityLimiter.Allow("guardrail:" + id) {
		return OtherLabel
	}
	return id
}

// CardinalityLimiter caps the number of distinct label values tracked.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or still fits under the
// limit, tracking it in the latter case.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
