package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"goaltracker/internal/auth"
	"goaltracker/internal/metrics"
	"goaltracker/internal/models"
	"goaltracker/internal/store"
)

// maxBodyBytes bounds request bodies, including snapshot imports.
const maxBodyBytes = 10 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	db           *store.SQLiteStore
	auth         *auth.Service
	logger       *zap.SugaredLogger
	metrics      *metrics.Metrics
	authRequired bool
}

// Options configure optional handler behavior.
type Options struct {
	AuthRequired bool
	Logger       *zap.SugaredLogger
	Metrics      *metrics.Metrics
}

// New creates a new Handlers instance.
func New(db *store.SQLiteStore, authSvc *auth.Service, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handlers{
		db:           db,
		auth:         authSvc,
		logger:       logger,
		metrics:      opts.Metrics,
		authRequired: opts.AuthRequired,
	}
}

// Routes builds the router for the /api surface and /metrics.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware(h.authRequired, func(w http.ResponseWriter, msg string) {
				respondError(w, http.StatusUnauthorized, msg)
			}))

			r.Get("/auth/verify", h.Verify)

			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.CreateTask)
			r.Get("/tasks/{id}", h.GetTask)
			r.Put("/tasks/{id}", h.UpdateTask)
			r.Delete("/tasks/{id}", h.DeleteTask)

			r.Get("/goals", h.ListGoals)
			r.Post("/goals", h.CreateGoal)
			r.Get("/goals/{id}", h.GetGoal)
			r.Put("/goals/{id}", h.UpdateGoal)
			r.Delete("/goals/{id}", h.DeleteGoal)

			r.Get("/settings", h.GetSettings)
			r.Put("/settings", h.PutSetting)

			r.Get("/statistics", h.GetStatistics)
			r.Patch("/statistics", h.UpdateStatistics)

			r.Get("/export", h.Export)
			r.Post("/import", h.Import)
		})
	})

	return r
}

// userStore returns the store scoped to the caller.
func (h *Handlers) userStore(r *http.Request) *store.UserStore {
	return h.db.ForUser(auth.UserID(r.Context()))
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// respondStoreError maps the error taxonomy onto HTTP statuses.
func (h *Handlers) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *models.NotFoundError
	switch {
	case models.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, notFound.Kind+" not found")
	case models.IsConflict(err):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Errorw("internal server error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("invalid JSON body")
	}
	return nil
}

// Health reports liveness and database reachability.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "database unavailable"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status": status,
		"time":   time.Now().UTC(),
	})
}
