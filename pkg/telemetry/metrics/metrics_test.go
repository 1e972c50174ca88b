package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/overseer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "metrics",
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if cfg.Namespace != "overseer" || cfg.Subsystem != "governance" {
		t.Errorf("defaults = %s/%s", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.EvaluationDurationBuckets) == 0 || len(cfg.RequestDurationBuckets) == 0 {
		t.Error("default buckets not applied")
	}

	if c := NewCollector(testConfig(), nil); c.Registry() == nil {
		t.Error("nil registry should be replaced")
	}
}

func TestCollector_ObserveDecision(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.ObserveDecision("escalated", 65, []string{"builtin-destructive-action"}, 2*time.Millisecond)
	collector.ObserveDecision("escalated", 80, []string{"builtin-destructive-action", "builtin-pii-access"}, time.Millisecond)
	collector.ObserveDecision("auto-approved", 20, nil, time.Millisecond)

	dm := collector.decisionMetrics
	if got := testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("escalated")); got != 2 {
		t.Errorf("escalated decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("auto-approved")); got != 1 {
		t.Errorf("auto-approved decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(dm.triggersTotal.WithLabelValues("builtin-destructive-action")); got != 2 {
		t.Errorf("destructive triggers = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(dm.riskScore); got != 1 {
		t.Errorf("risk score histogram series = %d, want 1", got)
	}
}

func TestCollector_InterventionsAndGuardrails(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.ObserveIntervention("created", "high")
	collector.ObserveIntervention("created", "high")
	collector.ObserveIntervention("expired", "high")
	collector.SetPendingInterventions(1)
	collector.SetGuardrails(7, 8)
	collector.ObserveEvaluationFault("broken")

	im := collector.interventionMetrics
	if got := testutil.ToFloat64(im.eventsTotal.WithLabelValues("created", "high")); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(im.pending); got != 1 {
		t.Errorf("pending = %v, want 1", got)
	}
	if got := testutil.ToFloat64(im.guardrails.WithLabelValues("enabled")); got != 7 {
		t.Errorf("enabled guardrails = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.decisionMetrics.faultsTotal.WithLabelValues("broken")); got != 1 {
		t.Errorf("faults = %v, want 1", got)
	}
}

func TestCollector_RequestsAndAudit(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordHTTPRequest("POST", "/api/v1/decisions", 201, 3*time.Millisecond)
	collector.RecordHTTPRequest("POST", "/api/v1/decisions", 201, time.Millisecond)
	collector.RecordAuditWrite("decision.logged", nil)
	collector.RecordAuditWrite("decision.logged", errors.New("disk full"))

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("POST", "/api/v1/decisions", "201")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.auditWrites.WithLabelValues("decision.logged", "error")); got != 1 {
		t.Errorf("failed audit writes = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.ObserveDecision("escalated", 90, []string{"g"}, time.Millisecond)
	collector.SetPendingInterventions(5)

	if got := testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues("escalated")); got != 0 {
		t.Errorf("disabled collector recorded %v decisions", got)
	}
	if got := testutil.ToFloat64(collector.interventionMetrics.pending); got != 0 {
		t.Errorf("disabled collector set pending to %v", got)
	}
}

func TestCollector_GuardrailCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	collector.ObserveDecision("pending", 50, []string{"a", "b", "c", "d"}, time.Millisecond)

	if got := testutil.ToFloat64(collector.decisionMetrics.triggersTotal.WithLabelValues(OtherLabel)); got != 2 {
		t.Errorf("overflow triggers = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(collector.decisionMetrics.triggersTotal); got != 3 {
		t.Errorf("trigger series = %d, want 3", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(3)

	for i := 0; i < 3; i++ {
		if !cl.Allow(fmt.Sprintf("k%d", i)) {
			t.Errorf("Allow(k%d) = false under the limit", i)
		}
	}
	if cl.Allow("k3") {
		t.Error("Allow() past the limit should be false")
	}
	if !cl.Allow("k0") {
		t.Error("Allow() of a tracked value should be true")
	}
	if cl.Count() != 3 {
		t.Errorf("Count() = %d, want 3", cl.Count())
	}
}

func TestCardinalityLimiter_Concurrent(t *testing.T) {
	cl := NewCardinalityLimiter(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cl.Allow(fmt.Sprintf("%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()
	if cl.Count() != 50 {
		t.Errorf("Count() = %d, want 50", cl.Count())
	}
}

func TestHandler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.ObserveDecision("escalated", 65, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `test_metrics_decisions_total{status="escalated"} 1`) {
		t.Errorf("exposition missing decision counter:\n%s", body)
	}
}
