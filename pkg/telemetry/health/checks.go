package health

import (
	"context"
	"fmt"

	"mercator-hq/overseer/pkg/audit"
)

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuditStorageCheck verifies the audit backend answers a count query.
func AuditStorageCheck(storage audit.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := storage.Count(ctx, &audit.Query{}); err != nil {
			return fmt.Errorf("audit storage: %w", err)
		}
		return nil
	}
}

// PingCheck verifies p is reachable.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// BacklogCheck fails once pending reaches limit, e.g. a full audit write
// buffer. A non-positive limit disables the check.
func BacklogCheck(pending func() int, limit int) CheckFunc {
	return func(ctx context.Context) error {
		if limit <= 0 {
			return nil
		}
		if n := pending(); n >= limit {
			return fmt.Errorf("backlog %d reached limit %d", n, limit)
		}
		return nil
	}
}
