// Package sweeper drives periodic checks over every registered deployment.
// Retry policy lives here and nowhere deeper: the orchestrator never
// retries, a failed probe simply waits for the next sweep.
package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/services/monitor"
)

type Config struct {
	Enabled     bool   `mapstructure:"enabled"`
	Schedule    string `mapstructure:"schedule"`
	Concurrency int    `mapstructure:"concurrency"`
}

type Checker interface {
	RunCheck(ctx context.Context, id int64) (*monitor.CheckResult, error)
}

var (
	mSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_targets_swept_total", Help: "Deployments checked by sweeps",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_errors_total", Help: "Failed checks during sweeps",
	})
	mSweepDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sweeper_sweep_duration_seconds", Help: "Full sweep duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	log         *zap.Logger
	deployments deployment.Repo
	checker     Checker
	schedule    string
	concurrency int
	cron        *cron.Cron
}

func New(log *zap.Logger, deployments deployment.Repo, checker Checker, cfg Config) *Runner {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Runner{
		log:         log,
		deployments: deployments,
		checker:     checker,
		schedule:    cfg.Schedule,
		concurrency: cfg.Concurrency,
	}
}

func (r *Runner) Start(ctx context.Context) error {
	// A slow sweep must not stack on top of itself; an overdue tick is
	// skipped and the targets wait for the next one.
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Sweep(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("sweeper started", zap.String("schedule", r.schedule), zap.Int("concurrency", r.concurrency))
	return nil
}

// Stop halts the schedule and returns a context that is done once any
// in-flight sweep has finished.
func (r *Runner) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// Sweep checks every deployed target once. Targets run in parallel up to
// the concurrency limit; same-day contention on a single target's stat
// bucket is handled by the store's atomic upsert, not here.
func (r *Runner) Sweep(ctx context.Context) {
	start := time.Now()

	all, err := r.deployments.List(ctx)
	if err != nil {
		mErrors.Inc()
		r.log.Warn("sweep list deployments", zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	swept := 0
	for _, d := range all {
		if d.Status != deployment.StatusDeployed {
			continue
		}
		swept++
		id := d.ID
		g.Go(func() error {
			if _, err := r.checker.RunCheck(gctx, id); err != nil {
				mErrors.Inc()
				r.log.Warn("sweep check", zap.Int64("deployment_id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	mSwept.Add(float64(swept))
	mSweepDur.Observe(time.Since(start).Seconds())
	if swept > 0 {
		r.log.Debug("sweep complete", zap.Int("targets", swept), zap.Duration("took", time.Since(start)))
	}
}
