package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/httpapi/middleware"
	"github.com/deploywatch/deploywatch/internal/obs"
	"github.com/deploywatch/deploywatch/internal/services/monitor"
	"github.com/deploywatch/deploywatch/internal/services/registry"
)

type Checker interface {
	RunCheck(ctx context.Context, id int64) (*monitor.CheckResult, error)
}

type Server struct {
	log      *zap.Logger
	registry *registry.Registry
	checker  Checker
	health   func(ctx context.Context) error
	tokens   []string
}

func NewServer(log *zap.Logger, reg *registry.Registry, checker Checker, health func(ctx context.Context) error, tokens []string) *Server {
	return &Server{
		log:      log,
		registry: reg,
		checker:  checker,
		health:   health,
		tokens:   tokens,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if s.health != nil {
			if err := s.health(hctx); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", obs.MetricsHandler())

	r.Route("/api/v1/deployments", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.tokens))
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Patch("/", s.handleUpdate)
			r.Delete("/", s.handleDelete)
			r.Post("/health-check", s.handleHealthCheck)
		})
	})

	return r
}
