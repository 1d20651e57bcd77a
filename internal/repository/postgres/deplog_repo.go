package postgres

import (
	"context"
	"fmt"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
)

var _ deplog.Repo = (*LogRepo)(nil)

// LogRepo is insert-only. Nothing in this package updates or deletes
// deployment_logs rows; the table is the audit trail.
type LogRepo struct{ db *DB }

func NewLogRepo(db *DB) *LogRepo { return &LogRepo{db: db} }

const (
	qLogInsert = `
INSERT INTO deployment_logs (deployment_id, log_type, message, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`

	qLogsByDeployment = `
SELECT id, deployment_id, log_type, message, metadata, created_at
FROM deployment_logs
WHERE deployment_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
)

func (r *LogRepo) Insert(ctx context.Context, l *deplog.Log) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qLogInsert,
		l.DeploymentID, l.LogType, l.Message, l.Metadata, l.CreatedAt,
	).Scan(&l.ID); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *LogRepo) ListByDeployment(ctx context.Context, deploymentID int64, limit int) ([]*deplog.Log, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qLogsByDeployment, deploymentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	out := make([]*deplog.Log, 0, limit)
	for rows.Next() {
		var l deplog.Log
		if err := rows.Scan(&l.ID, &l.DeploymentID, &l.LogType, &l.Message, &l.Metadata, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
