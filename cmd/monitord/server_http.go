package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	config "github.com/deploywatch/deploywatch/internal/config/monitord"
	"github.com/deploywatch/deploywatch/internal/httpapi"
	"github.com/deploywatch/deploywatch/internal/services/registry"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, reg *registry.Registry, checker httpapi.Checker, health func(ctx context.Context) error) *http.Server {
	srv := httpapi.NewServer(logger, reg, checker, health, cfg.Auth.Tokens)
	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
