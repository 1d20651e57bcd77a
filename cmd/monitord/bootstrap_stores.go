package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/deploywatch/deploywatch/internal/config/monitord"
	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/domain/depstat"
	"github.com/deploywatch/deploywatch/internal/repository/memory"
	pg "github.com/deploywatch/deploywatch/internal/repository/postgres"
	"github.com/deploywatch/deploywatch/internal/services/registry"
)

type stores struct {
	deployments deployment.Repo
	logs        deplog.Repo
	stats       depstat.Repo
	tx          registry.Transactor
	health      func(ctx context.Context) error
	close       func()
}

// initStores picks the backing store: Postgres when a DSN is configured,
// the in-process store otherwise.
func initStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DB.DSN == "" {
		logger.Warn("no db dsn configured, using in-memory store")
		mem := memory.New()
		return &stores{
			deployments: mem.Deployments(),
			logs:        mem.Logs(),
			stats:       mem.Stats(),
			tx:          mem,
			health:      func(context.Context) error { return nil },
			close:       func() {},
		}, nil
	}

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &stores{
		deployments: pg.NewDeploymentRepo(db),
		logs:        pg.NewLogRepo(db),
		stats:       pg.NewStatRepo(db),
		tx:          pg.NewTransactor(db, logger),
		health:      db.Pool.Ping,
		close:       db.Close,
	}, nil
}
