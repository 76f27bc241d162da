package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intelliroute/intelliroute/internal/engine"
	"github.com/intelliroute/intelliroute/internal/store"
)

func NewRouter(s store.Store, eng *engine.Engine, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	engineers := NewEngineersHandler(s)
	queries := NewQueriesHandler(s, eng)
	assignments := NewAssignmentsHandler(s, eng)
	admin := NewAdminHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/engineers", engineers.Create)
		r.Get("/engineers", engineers.List)
		r.Get("/engineers/{id}", engineers.Get)
		r.Patch("/engineers/{id}", engineers.Update)

		r.Post("/queries", queries.Create)
		r.Get("/queries", queries.List)
		r.Get("/queries/{id}", queries.Get)
		r.Post("/queries/{id}/escalate", queries.Escalate)

		r.Post("/assignments/run", assignments.Run)
		r.Get("/assignments", assignments.List)
		r.Get("/assignments/{id}", assignments.Get)
		r.Post("/assignments/{id}/complete", assignments.Complete)
		r.Post("/assignments/{id}/escalate", assignments.Escalate)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine error categories onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
