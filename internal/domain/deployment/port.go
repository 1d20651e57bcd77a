package deployment

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, d *Deployment) error
	GetByID(ctx context.Context, id int64) (*Deployment, error)
	List(ctx context.Context) ([]*Deployment, error)
	Update(ctx context.Context, d *Deployment) error
	// UpdateHealth overwrites health_status and last_health_check_at,
	// last-write-wins. It is the only mutation the monitoring path performs.
	UpdateHealth(ctx context.Context, id int64, status HealthStatus, checkedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}
