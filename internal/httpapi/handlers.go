package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/obs"
	"github.com/deploywatch/deploywatch/internal/services/registry"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.registry.List(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deployments": list})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var spec registry.CreateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeErr(w, r, fmt.Errorf("%w: invalid json body", deployment.ErrValidation))
		return
	}
	d, err := s.registry.Create(r.Context(), spec)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"deployment": d})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	detail, err := s.registry.Get(r.Context(), id, queryInt(r, "logs"), queryInt(r, "stats"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var spec registry.UpdateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeErr(w, r, fmt.Errorf("%w: invalid json body", deployment.ErrValidation))
		return
	}
	d, err := s.registry.Update(r.Context(), id, spec)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deployment": d})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := s.registry.Delete(r.Context(), id); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "deployment deleted",
		"id":      id,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	res, err := s.checker.RunCheck(r.Context(), id)
	if err != nil && res == nil {
		s.writeErr(w, r, err)
		return
	}
	if err != nil {
		// The probe ran and the health status was written, but some
		// follow-up persistence failed; surface it, never hide it.
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "health check recorded partially",
			"details": err.Error(),
			"result":  res,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid deployment id %q", deployment.ErrValidation, raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, deployment.ErrValidation):
		code, msg = http.StatusBadRequest, "validation failed"
	case errors.Is(err, deployment.ErrNotFound):
		code, msg = http.StatusNotFound, "deployment not found"
	case errors.Is(err, deployment.ErrConflict):
		code, msg = http.StatusConflict, "deployment name already exists"
	}
	if code == http.StatusInternalServerError {
		obs.WithTrace(r.Context(), s.log).Error("request failed",
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, code, map[string]any{
		"error":   msg,
		"details": err.Error(),
	})
}
