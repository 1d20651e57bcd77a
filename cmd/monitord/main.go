package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/deploywatch/deploywatch/internal/config/monitord"
	"github.com/deploywatch/deploywatch/internal/obs"
	kafkax "github.com/deploywatch/deploywatch/internal/repository/kafka"
	"github.com/deploywatch/deploywatch/internal/services/monitor"
	"github.com/deploywatch/deploywatch/internal/services/probe"
	"github.com/deploywatch/deploywatch/internal/services/registry"
	"github.com/deploywatch/deploywatch/internal/services/sweeper"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/monitord.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting monitord", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	st, err := initStores(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer st.close()

	var events monitor.Events
	if cfg.Kafka.Enabled {
		prod := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		defer func() { _ = prod.Close() }()
		events = kafkax.NewHealthEventsKafka(prod)
	}

	prober := probe.New(cfg.Probe)
	orch := monitor.New(st.deployments, st.logs, st.stats, prober, events, monitor.SystemClock{}, logger)
	reg := registry.New(st.deployments, st.logs, st.stats, st.tx, logger, nil)

	var sweep *sweeper.Runner
	if cfg.Sweep.Enabled {
		sweep = sweeper.New(logger, st.deployments, orch, cfg.Sweep)
		if err := sweep.Start(rootCtx); err != nil {
			logger.Fatal("sweeper start", zap.Error(err))
		}
	}

	httpSrv := buildHTTPServer(cfg, logger, reg, orch, st.health)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	if sweep != nil {
		<-sweep.Stop().Done()
	}
	logger.Info("bye")
}
