// Package api serves the dashboard's JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-dashboard/internal/ai"
	"github.com/nhle/task-dashboard/internal/auth"
	"github.com/nhle/task-dashboard/internal/logging"
	"github.com/nhle/task-dashboard/internal/model"
	"github.com/nhle/task-dashboard/internal/store"
)

// Options holds the tunables the handlers read.
type Options struct {
	CORSOrigin          string
	RecentActivityLimit int
}

// Server wires the store, token issuer, and AI service into HTTP handlers.
type Server struct {
	store  store.Store
	issuer *auth.Issuer
	ai     *ai.Service
	logger logrus.FieldLogger
	opts   Options
	now    func() time.Time
}

// NewServer creates a Server. Zero options fall back to defaults.
func NewServer(
	s store.Store,
	issuer *auth.Issuer,
	assistant *ai.Service,
	logger logrus.FieldLogger,
	opts Options,
) *Server {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.RecentActivityLimit <= 0 {
		opts.RecentActivityLimit = model.DefaultAppConfig().Insights.RecentActivityLimit
	}
	return &Server{
		store:  s,
		issuer: issuer,
		ai:     assistant,
		logger: logger,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handler returns the full HTTP handler: routes plus logging, panic
// recovery, and CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{Code: "not_found", Message: "endpoint not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, APIError{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Middleware(s.issuer, s.unauthorized))

	protected.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	protected.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	protected.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	protected.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{projectID}", s.handleGetProject).Methods(http.MethodGet)
	protected.HandleFunc("/projects/{projectID}", s.handleUpdateProject).Methods(http.MethodPut)
	protected.HandleFunc("/projects/{projectID}", s.handleDeleteProject).Methods(http.MethodDelete)

	protected.HandleFunc("/projects/{projectID}/members", s.handleListMembers).Methods(http.MethodGet)
	protected.HandleFunc("/projects/{projectID}/members", s.handleAddMember).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{projectID}/members/{userID}", s.handleUpdateMember).Methods(http.MethodPut)
	protected.HandleFunc("/projects/{projectID}/members/{userID}", s.handleRemoveMember).Methods(http.MethodDelete)

	protected.HandleFunc("/projects/{projectID}/tasks", s.handleListTasks).Methods(http.MethodGet)
	protected.HandleFunc("/projects/{projectID}/tasks", s.handleCreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{taskID}", s.handleGetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{taskID}", s.handleUpdateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{taskID}", s.handleDeleteTask).Methods(http.MethodDelete)

	protected.HandleFunc("/tasks/{taskID}/comments", s.handleListComments).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{taskID}/comments", s.handleCreateComment).Methods(http.MethodPost)
	protected.HandleFunc("/comments/{commentID}", s.handleDeleteComment).Methods(http.MethodDelete)

	protected.HandleFunc("/projects/{projectID}/activities", s.handleListActivities).Methods(http.MethodGet)
	protected.HandleFunc("/projects/{projectID}/insights", s.handleProjectInsights).Methods(http.MethodGet)

	protected.HandleFunc("/ai/generate-tasks", s.handleGenerateTasks).Methods(http.MethodPost)
	protected.HandleFunc("/ai/chat", s.handleChat).Methods(http.MethodPost)
	protected.HandleFunc("/projects/{projectID}/ai-insights", s.handleAIInsights).Methods(http.MethodGet)

	var h http.Handler = r
	h = s.recoverer(h)
	h = s.cors(h)
	h = logging.Middleware(s.logger)(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, APIError{
				Code:    "unhealthy",
				Message: "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) unauthorized(w http.ResponseWriter, _ *http.Request, message string) {
	writeJSONError(w, http.StatusUnauthorized, APIError{
		Code:    "unauthorized",
		Message: message,
	})
}

// cors sets CORS headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// recoverer turns a handler panic into a logged 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logrus.Fields{
					"event": "panic",
					"path":  r.URL.Path,
					"panic": rec,
					"stack": string(debug.Stack()),
				}).Error("handler panicked")
				writeJSONError(w, http.StatusInternalServerError, APIError{
					Code:    "internal_error",
					Message: "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// recordActivity appends to the activity log. Failures are logged and do
// not fail the request that caused them.
func (s *Server) recordActivity(ctx context.Context, activity model.Activity) {
	activity.CreatedAt = s.now()
	if err := s.store.RecordActivity(ctx, activity); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":         "activity_record_failed",
			"activity_type": activity.Type,
		}).WithError(err).Warn("could not record activity")
	}
}
