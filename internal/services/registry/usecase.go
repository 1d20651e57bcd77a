package registry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/domain/depstat"
)

const (
	DefaultDetailLogs  = 50
	DefaultDetailStats = 30
	previewLogs        = 5
	previewStats       = 7
)

// Transactor groups a row write with its audit log entry.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Registry struct {
	deployments deployment.Repo
	logs        deplog.Repo
	stats       depstat.Repo
	tx          Transactor
	log         *zap.Logger
	clk         func() time.Time
}

func New(deployments deployment.Repo, logs deplog.Repo, stats depstat.Repo, tx Transactor, log *zap.Logger, clk func() time.Time) *Registry {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Registry{
		deployments: deployments,
		logs:        logs,
		stats:       stats,
		tx:          tx,
		log:         log,
		clk:         clk,
	}
}

type CreateSpec struct {
	Name           string         `json:"name"`
	DisplayName    string         `json:"display_name"`
	URL            string         `json:"url"`
	HealthCheckURL string         `json:"health_check_url"`
	Platform       string         `json:"platform"`
	RepositoryURL  string         `json:"repository_url"`
	Branch         string         `json:"branch"`
	Environment    string         `json:"environment"`
	Notes          string         `json:"notes"`
	Metadata       map[string]any `json:"metadata"`
}

func (r *Registry) Create(ctx context.Context, spec CreateSpec) (*deployment.Deployment, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: name is required", deployment.ErrValidation)
	}
	if spec.URL == "" {
		return nil, fmt.Errorf("%w: url is required", deployment.ErrValidation)
	}

	d := &deployment.Deployment{
		Name:           spec.Name,
		DisplayName:    spec.DisplayName,
		URL:            spec.URL,
		HealthCheckURL: spec.HealthCheckURL,
		Platform:       spec.Platform,
		RepositoryURL:  spec.RepositoryURL,
		Branch:         spec.Branch,
		Environment:    spec.Environment,
		Notes:          spec.Notes,
		Status:         deployment.StatusDeployed,
		HealthStatus:   deployment.HealthUnknown,
		Metadata:       spec.Metadata,
	}
	if d.DisplayName == "" {
		d.DisplayName = d.Name
	}
	if d.Platform == "" {
		d.Platform = deployment.DefaultPlatform
	}
	if d.Branch == "" {
		d.Branch = deployment.DefaultBranch
	}
	if d.Environment == "" {
		d.Environment = deployment.DefaultEnvironment
	}
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}

	err := r.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := r.deployments.Create(txCtx, d); err != nil {
			return err
		}
		return r.logs.Insert(txCtx, &deplog.Log{
			DeploymentID: d.ID,
			LogType:      deplog.TypeCreated,
			Message:      fmt.Sprintf("Deployment %q registered", d.Name),
			Metadata:     map[string]any{"platform": d.Platform, "environment": d.Environment},
			CreatedAt:    r.clk(),
		})
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("deployment created",
		zap.Int64("id", d.ID),
		zap.String("name", d.Name),
		zap.String("url", d.URL),
	)
	return d, nil
}

// Detail is a deployment together with its newest-first log and stat tails.
type Detail struct {
	Deployment *deployment.Deployment `json:"deployment"`
	Logs       []*deplog.Log          `json:"logs"`
	Stats      []*depstat.Stat        `json:"stats"`
}

func (r *Registry) Get(ctx context.Context, id int64, logLimit, statLimit int) (*Detail, error) {
	if logLimit <= 0 {
		logLimit = DefaultDetailLogs
	}
	if statLimit <= 0 {
		statLimit = DefaultDetailStats
	}

	d, err := r.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := r.logs.ListByDeployment(ctx, id, logLimit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	stats, err := r.stats.ListByDeployment(ctx, id, statLimit)
	if err != nil {
		return nil, fmt.Errorf("list stats: %w", err)
	}
	return &Detail{Deployment: d, Logs: logs, Stats: stats}, nil
}

// List returns all deployments in creation order, each with a short
// recent-log / recent-stat preview.
func (r *Registry) List(ctx context.Context) ([]*Detail, error) {
	all, err := r.deployments.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Detail, 0, len(all))
	for _, d := range all {
		logs, err := r.logs.ListByDeployment(ctx, d.ID, previewLogs)
		if err != nil {
			return nil, fmt.Errorf("list logs: %w", err)
		}
		stats, err := r.stats.ListByDeployment(ctx, d.ID, previewStats)
		if err != nil {
			return nil, fmt.Errorf("list stats: %w", err)
		}
		out = append(out, &Detail{Deployment: d, Logs: logs, Stats: stats})
	}
	return out, nil
}

type UpdateSpec struct {
	DisplayName    *string        `json:"display_name"`
	URL            *string        `json:"url"`
	HealthCheckURL *string        `json:"health_check_url"`
	Platform       *string        `json:"platform"`
	RepositoryURL  *string        `json:"repository_url"`
	Branch         *string        `json:"branch"`
	Environment    *string        `json:"environment"`
	Notes          *string        `json:"notes"`
	Status         *string        `json:"status"`
	Metadata       map[string]any `json:"metadata"`
}

func (r *Registry) Update(ctx context.Context, id int64, spec UpdateSpec) (*deployment.Deployment, error) {
	if spec.URL != nil && *spec.URL == "" {
		return nil, fmt.Errorf("%w: url cannot be empty", deployment.ErrValidation)
	}

	d, err := r.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	diff := map[string]any{}
	apply := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			diff[field] = *src
			*dst = *src
		}
	}
	apply("display_name", &d.DisplayName, spec.DisplayName)
	apply("url", &d.URL, spec.URL)
	apply("health_check_url", &d.HealthCheckURL, spec.HealthCheckURL)
	apply("platform", &d.Platform, spec.Platform)
	apply("repository_url", &d.RepositoryURL, spec.RepositoryURL)
	apply("branch", &d.Branch, spec.Branch)
	apply("environment", &d.Environment, spec.Environment)
	apply("notes", &d.Notes, spec.Notes)
	apply("status", &d.Status, spec.Status)
	if spec.Metadata != nil {
		diff["metadata"] = spec.Metadata
		d.Metadata = spec.Metadata
	}
	if len(diff) == 0 {
		return d, nil
	}

	err = r.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := r.deployments.Update(txCtx, d); err != nil {
			return err
		}
		return r.logs.Insert(txCtx, &deplog.Log{
			DeploymentID: d.ID,
			LogType:      deplog.TypeUpdated,
			Message:      "Deployment updated",
			Metadata:     map[string]any{"changes": diff},
			CreatedAt:    r.clk(),
		})
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("deployment updated", zap.Int64("id", d.ID), zap.Int("fields", len(diff)))
	return d, nil
}

// Delete removes the deployment; its logs and stats go with it, the store
// cascades. The deleted event therefore lands in the service log only.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	d, err := r.deployments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.deployments.Delete(ctx, id); err != nil {
		return err
	}
	r.log.Info("deployment deleted", zap.Int64("id", id), zap.String("name", d.Name))
	return nil
}
