package metrics

import (
	"strconv"
	"time"

	"mercator-hq/overseer/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks API requests and audit writes.
//
// Metrics:
//   - overseer_governance_http_requests_total: requests by method, route and status code
//   - overseer_governance_http_request_duration_seconds: request latency
//   - overseer_governance_audit_writes_total: audit storage writes by event type and result
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	auditWrites     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of API requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method", "route"},
		),

		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_writes_total",
				Help:      "Total number of audit record writes",
			},
			[]string{"event_type", "result"},
		),
	}

	registry.MustRegister(rm.requestsTotal, rm.requestDuration, rm.auditWrites)

	return rm
}

// RecordRequest records one API request.
func (rm *RequestMetrics) RecordRequest(method, route string, code int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	rm.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuditWrite records one audit storage write.
func (rm *RequestMetrics) RecordAuditWrite(eventType string, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	rm.auditWrites.WithLabelValues(eventType, result).Inc()
}
