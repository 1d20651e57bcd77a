// Package monitor sequences a single health check: probe the target,
// overwrite its health status, append the audit log entry and fold the
// outcome into today's stat bucket.
package monitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/domain/depstat"
	"github.com/deploywatch/deploywatch/internal/services/probe"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type Prober interface {
	Do(ctx context.Context, url string) probe.Result
}

// Events receives health transitions for downstream consumers. Optional;
// a nil publisher disables it.
type Events interface {
	PublishHealthChanged(ctx context.Context, deploymentID int64, from, to deployment.HealthStatus, at time.Time) error
}

// CheckResult is what RunCheck hands back to the operator or scheduler.
type CheckResult struct {
	DeploymentID   int64                   `json:"deployment_id"`
	HealthStatus   deployment.HealthStatus `json:"health_status"`
	ResponseTimeMs int64                   `json:"response_time_ms"`
	Error          string                  `json:"error,omitempty"`
	CheckedAt      time.Time               `json:"checked_at"`
}

type Orchestrator struct {
	deployments deployment.Repo
	logs        deplog.Repo
	stats       depstat.Repo
	prober      Prober
	events      Events
	clk         Clock
	log         *zap.Logger
}

func New(deployments deployment.Repo, logs deplog.Repo, stats depstat.Repo, prober Prober, events Events, clk Clock, log *zap.Logger) *Orchestrator {
	if clk == nil {
		clk = SystemClock{}
	}
	return &Orchestrator{
		deployments: deployments,
		logs:        logs,
		stats:       stats,
		prober:      prober,
		events:      events,
		clk:         clk,
		log:         log,
	}
}

// RunCheck probes one deployment and records the outcome. The steps after
// the probe are best-effort in isolation: a failed stat upsert never rolls
// back the health-status write or the log entry. Every persistence failure
// is still surfaced in the returned error, next to the populated result.
func (o *Orchestrator) RunCheck(ctx context.Context, id int64) (*CheckResult, error) {
	tr := otel.Tracer("monitor.orchestrator")
	ctx, span := tr.Start(ctx, "monitor.run_check",
		trace.WithAttributes(attribute.Int64("deployment.id", id)),
	)
	defer span.End()

	dep, err := o.deployments.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get deployment: %w", err)
	}

	res := o.prober.Do(ctx, dep.CheckURL())
	checkedAt := o.clk.Now().UTC()

	mChecks.Inc()
	mLatency.Observe(float64(res.ResponseTimeMs) / 1000)
	if res.Status == deployment.HealthHealthy {
		mHealthy.Inc()
	} else {
		mUnhealthy.Inc()
	}
	span.SetAttributes(
		attribute.String("probe.status", string(res.Status)),
		attribute.Int64("probe.response_time_ms", res.ResponseTimeMs),
	)

	var errs error

	if err := o.deployments.UpdateHealth(ctx, dep.ID, res.Status, checkedAt); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("update health: %w", err))
	}

	msg := res.Error
	if msg == "" {
		msg = fmt.Sprintf("Health check completed: %s", res.Status)
	}
	meta := map[string]any{
		"status":           res.Status,
		"response_time_ms": res.ResponseTimeMs,
	}
	if res.Error != "" {
		meta["error"] = res.Error
	}
	if err := o.logs.Insert(ctx, &deplog.Log{
		DeploymentID: dep.ID,
		LogType:      deplog.TypeHealthCheck,
		Message:      msg,
		Metadata:     meta,
		CreatedAt:    checkedAt,
	}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("append log: %w", err))
	}

	if _, err := o.stats.RecordOutcome(ctx, dep.ID, depstat.DayOf(checkedAt), res.Status == deployment.HealthHealthy, res.ResponseTimeMs); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("record stat: %w", err))
	}

	if o.events != nil && dep.HealthStatus != res.Status {
		if err := o.events.PublishHealthChanged(ctx, dep.ID, dep.HealthStatus, res.Status, checkedAt); err != nil {
			mPublishErr.Inc()
			o.log.Warn("publish health transition",
				zap.Int64("deployment_id", dep.ID), zap.Error(err))
		}
	}

	if errs != nil {
		mStoreErr.Inc()
		span.RecordError(errs)
	}
	o.log.Info("health check",
		zap.Int64("deployment_id", dep.ID),
		zap.String("status", string(res.Status)),
		zap.Int64("response_time_ms", res.ResponseTimeMs),
		zap.String("error", res.Error),
	)

	return &CheckResult{
		DeploymentID:   dep.ID,
		HealthStatus:   res.Status,
		ResponseTimeMs: res.ResponseTimeMs,
		Error:          res.Error,
		CheckedAt:      checkedAt,
	}, errs
}
