// Package query validates audit queries and applies their defaults.
package query

import (
	"fmt"

	"mercator-hq/overseer/pkg/audit"
)

const (
	// DefaultLimit is used when a query does not set one.
	DefaultLimit = 100

	// MaxLimit caps a single query.
	MaxLimit = 10000
)

// ValidSortOrders contains the accepted sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate returns a *audit.QueryError describing the first invalid parameter.
func Validate(q *audit.Query) error {
	if q.Limit < 0 {
		return audit.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return audit.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return audit.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return audit.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.EventType != "" && !q.EventType.IsValid() {
		return audit.NewQueryError(q, fmt.Errorf("invalid event type: %s", q.EventType))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return audit.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.MinRiskScore != nil && q.MaxRiskScore != nil && *q.MinRiskScore > *q.MaxRiskScore {
		return audit.NewQueryError(q, fmt.Errorf("min_risk_score must be <= max_risk_score"))
	}
	return nil
}

// ApplyDefaults fills the limit and sort order.
func ApplyDefaults(q *audit.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
