package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deploywatch/deploywatch/internal/domain/depstat"
)

var _ depstat.Repo = (*StatRepo)(nil)

type StatRepo struct{ db *DB }

func NewStatRepo(db *DB) *StatRepo { return &StatRepo{db: db} }

const statCols = `
id, deployment_id, stat_date, total_requests, success_count, error_count,
uptime_percentage, response_time_ms, created_at, updated_at`

// qStatUpsert is the whole aggregator in one statement. The row lock taken
// by ON CONFLICT .. DO UPDATE serializes concurrent probes of the same
// deployment on the same day, so counters never lose updates and
// uptime_percentage is recomputed from the post-increment totals.
// response_time_ms keeps the latest sample, last-write-wins.
const (
	qStatUpsert = `
INSERT INTO deployment_stats
  (deployment_id, stat_date, total_requests, success_count, error_count,
   uptime_percentage, response_time_ms)
VALUES ($1, $2, 1, $3, $4, $3::float8 * 100, $5)
ON CONFLICT (deployment_id, stat_date) DO UPDATE SET
  total_requests    = deployment_stats.total_requests + 1,
  success_count     = deployment_stats.success_count + EXCLUDED.success_count,
  error_count       = deployment_stats.error_count + EXCLUDED.error_count,
  uptime_percentage = (deployment_stats.success_count + EXCLUDED.success_count)::float8
                      / (deployment_stats.total_requests + 1)::float8 * 100,
  response_time_ms  = EXCLUDED.response_time_ms,
  updated_at        = NOW()
RETURNING` + statCols + `;`

	qStatsByDeployment = `
SELECT` + statCols + `
FROM deployment_stats
WHERE deployment_id = $1
ORDER BY stat_date DESC
LIMIT $2;`
)

func scanStat(row pgx.Row, s *depstat.Stat) error {
	if err := row.Scan(
		&s.ID,
		&s.DeploymentID,
		&s.StatDate,
		&s.TotalRequests,
		&s.SuccessCount,
		&s.ErrorCount,
		&s.UptimePercentage,
		&s.ResponseTimeMs,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *StatRepo) RecordOutcome(ctx context.Context, deploymentID int64, statDate time.Time, healthy bool, responseTimeMs int64) (*depstat.Stat, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	succ, errc := 0, 1
	if healthy {
		succ, errc = 1, 0
	}

	var s depstat.Stat
	row := r.db.Pool.QueryRow(ctx, qStatUpsert,
		deploymentID, depstat.DayOf(statDate), succ, errc, responseTimeMs,
	)
	if err := scanStat(row, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StatRepo) ListByDeployment(ctx context.Context, deploymentID int64, limit int) ([]*depstat.Stat, error) {
	if limit <= 0 {
		limit = 30
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qStatsByDeployment, deploymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := make([]*depstat.Stat, 0, limit)
	for rows.Next() {
		var s depstat.Stat
		if err := scanStat(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
