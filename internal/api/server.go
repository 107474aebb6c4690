// Package api exposes capacity-test runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rlpappan/pvcaptest/adapters/postgres"
	"github.com/rlpappan/pvcaptest/adapters/stats/ols"
	"github.com/rlpappan/pvcaptest/app"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
	apperrors "github.com/rlpappan/pvcaptest/internal/errors"
	"github.com/rlpappan/pvcaptest/internal/logging"
	"github.com/rlpappan/pvcaptest/internal/report"
)

// RunStore abstracts run persistence so the server works against Postgres or
// the in-memory fallback.
type RunStore interface {
	InsertRun(ctx context.Context, run *postgres.CapacityRun, steps []domain.FilterStep) error
	GetRun(ctx context.Context, id core.RunID) (*postgres.CapacityRun, error)
	GetFilterSteps(ctx context.Context, id core.RunID) ([]postgres.FilterStepRow, error)
	ListRuns(ctx context.Context, limit int) ([]postgres.CapacityRun, error)
}

// Server routes capacity-test requests.
type Server struct {
	router  *chi.Mux
	service *app.CapacityService
	store   RunStore
	log     *logging.Logger

	// reports caches rendered markdown by run id for the report endpoint.
	// Handlers run on separate goroutines, so access goes through reportsMu.
	reportsMu sync.RWMutex
	reports   map[core.RunID]string
}

// NewServer wires the HTTP surface over the run service and a store.
func NewServer(service *app.CapacityService, store RunStore) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		store:   store,
		log:     logging.Default.WithComponent("api"),
		reports: make(map[core.RunID]string),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/report", s.handleGetReport)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var params app.RunParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	outcome, err := s.service.Execute(r.Context(), params)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	run := postgres.NewCapacityRun(outcome.ID, outcome.Result, outcome.Uncertainty)
	if err := s.store.InsertRun(r.Context(), run, outcome.Steps); err != nil {
		s.log.Error("failed to store run %s: %v", outcome.ID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to store run")
		return
	}
	s.reportsMu.Lock()
	s.reports[outcome.ID] = report.Markdown(outcome.Result, outcome.Summary, outcome.Steps)
	s.reportsMu.Unlock()

	s.writeJSON(w, http.StatusCreated, outcome)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		s.log.Error("failed to list runs: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	steps, err := s.store.GetFilterSteps(r.Context(), id)
	if err != nil {
		s.log.Error("failed to load filter steps for %s: %v", id, err)
		steps = nil
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":   run,
		"steps": steps,
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.reportsMu.RLock()
	md, ok := s.reports[id]
	s.reportsMu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.HTML(md))
}

// writeRunError maps engine errors onto HTTP statuses: configuration and
// data-shape mistakes are the client's, everything else is ours.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var tolErr *domain.ToleranceFormatError
	var fitErr *ols.FitError
	switch {
	case errors.As(err, &tolErr):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &fitErr):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case apperrors.GetCode(err) == apperrors.CodeInvalidInput:
		s.writeError(w, http.StatusBadRequest, err.Error())
	case apperrors.GetCode(err) == apperrors.CodeDataLoad:
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("run execution failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "run execution failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
