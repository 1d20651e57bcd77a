package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
)

var _ deployment.Repo = (*DeploymentRepo)(nil)

type DeploymentRepo struct {
	db *DB
}

func NewDeploymentRepo(db *DB) *DeploymentRepo { return &DeploymentRepo{db: db} }

const deploymentCols = `
id, name, display_name, url, health_check_url, platform, repository_url,
branch, environment, notes, status, health_status, last_health_check_at,
metadata, created_at, updated_at`

const (
	qDeploymentInsert = `
INSERT INTO deployments
  (name, display_name, url, health_check_url, platform, repository_url,
   branch, environment, notes, status, health_status, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING` + deploymentCols + `;`

	qDeploymentByID = `
SELECT` + deploymentCols + `
FROM deployments
WHERE id = $1;`

	qDeploymentList = `
SELECT` + deploymentCols + `
FROM deployments
ORDER BY created_at, id;`

	qDeploymentUpdate = `
UPDATE deployments
SET display_name     = $2,
    url              = $3,
    health_check_url = $4,
    platform         = $5,
    repository_url   = $6,
    branch           = $7,
    environment      = $8,
    notes            = $9,
    status           = $10,
    metadata         = $11,
    updated_at       = NOW()
WHERE id = $1
RETURNING` + deploymentCols + `;`

	qDeploymentUpdateHealth = `
UPDATE deployments
SET health_status        = $2,
    last_health_check_at = $3,
    updated_at           = NOW()
WHERE id = $1;`

	qDeploymentDelete = `DELETE FROM deployments WHERE id = $1;`
)

func scanDeployment(row pgx.Row, d *deployment.Deployment) error {
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.DisplayName,
		&d.URL,
		&d.HealthCheckURL,
		&d.Platform,
		&d.RepositoryURL,
		&d.Branch,
		&d.Environment,
		&d.Notes,
		&d.Status,
		&d.HealthStatus,
		&d.LastHealthCheckAt,
		&d.Metadata,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *DeploymentRepo) Create(ctx context.Context, d *deployment.Deployment) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	row := eq.QueryRow(ctx, qDeploymentInsert,
		d.Name, d.DisplayName, d.URL, d.HealthCheckURL, d.Platform, d.RepositoryURL,
		d.Branch, d.Environment, d.Notes, d.Status, d.HealthStatus, d.Metadata,
	)
	return scanDeployment(row, d)
}

func (r *DeploymentRepo) GetByID(ctx context.Context, id int64) (*deployment.Deployment, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var d deployment.Deployment
	if err := scanDeployment(r.db.Pool.QueryRow(ctx, qDeploymentByID, id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeploymentRepo) List(ctx context.Context) ([]*deployment.Deployment, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qDeploymentList)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var out []*deployment.Deployment
	for rows.Next() {
		var d deployment.Deployment
		if err := scanDeployment(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *DeploymentRepo) Update(ctx context.Context, d *deployment.Deployment) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	row := eq.QueryRow(ctx, qDeploymentUpdate,
		d.ID, d.DisplayName, d.URL, d.HealthCheckURL, d.Platform, d.RepositoryURL,
		d.Branch, d.Environment, d.Notes, d.Status, d.Metadata,
	)
	return scanDeployment(row, d)
}

func (r *DeploymentRepo) UpdateHealth(ctx context.Context, id int64, status deployment.HealthStatus, checkedAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qDeploymentUpdateHealth, id, status, checkedAt)
	if err != nil {
		return fmt.Errorf("update health: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return deployment.ErrNotFound
	}
	return nil
}

func (r *DeploymentRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qDeploymentDelete, id)
	if err != nil {
		return fmt.Errorf("delete deployment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return deployment.ErrNotFound
	}
	return nil
}
