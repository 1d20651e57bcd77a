package depstat

import (
	"context"
	"time"
)

type Repo interface {
	// RecordOutcome upserts the (deploymentID, statDate) bucket in a single
	// atomic operation: first outcome of the day creates the row, later
	// outcomes increment counters and recompute the uptime percentage.
	// Concurrent probes for the same target must never lose updates.
	RecordOutcome(ctx context.Context, deploymentID int64, statDate time.Time, healthy bool, responseTimeMs int64) (*Stat, error)
	// ListByDeployment returns buckets newest stat_date first.
	ListByDeployment(ctx context.Context, deploymentID int64, limit int) ([]*Stat, error)
}
