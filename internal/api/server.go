// Package api exposes the CRM over plain JSON HTTP endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/auth"
	"crm-api/internal/domain"
	"crm-api/internal/export"
	"crm-api/internal/query"
	"crm-api/internal/repository"
	"crm-api/internal/workflow"
)

// Server bundles the handlers for every API resource.
type Server struct {
	clients   repository.ClientRepository
	tasks     repository.TaskRepository
	notes     repository.NoteRepository
	views     repository.SavedViewRepository
	workflows repository.WorkflowRepository
	users     repository.UserRepository

	workflowSvc *workflow.Service
	exportSvc   *export.Service

	now      func() time.Time
	location *time.Location
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the reference clock used for date-relative filters.
func WithClock(now func() time.Time, loc *time.Location) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.location = loc
		}
	}
}

// NewServer builds the API server.
func NewServer(
	clients repository.ClientRepository,
	tasks repository.TaskRepository,
	notes repository.NoteRepository,
	views repository.SavedViewRepository,
	workflows repository.WorkflowRepository,
	users repository.UserRepository,
	workflowSvc *workflow.Service,
	exportSvc *export.Service,
	opts ...Option,
) *Server {
	s := &Server{
		clients:     clients,
		tasks:       tasks,
		notes:       notes,
		views:       views,
		workflows:   workflows,
		users:       users,
		workflowSvc: workflowSvc,
		exportSvc:   exportSvc,
		now:         time.Now,
		location:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mux mounts every resource handler.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/meta/", &metaHandler{})
	mux.Handle("/api/clients", &clientHandler{server: s})
	mux.Handle("/api/clients/", &clientHandler{server: s})
	mux.Handle("/api/tasks", &taskHandler{server: s})
	mux.Handle("/api/tasks/", &taskHandler{server: s})
	mux.Handle("/api/views", &viewHandler{server: s})
	mux.Handle("/api/views/", &viewHandler{server: s})
	mux.Handle("/api/workflows", &workflowHandler{server: s})
	mux.Handle("/api/workflows/", &workflowHandler{server: s})
	mux.Handle("/api/users", &userHandler{server: s})
	mux.Handle("/api/export", export.NewHTTPHandler(s.exportSvc, s.views, s.now, s.location))
	return mux
}

// queryContext resolves the acting principal and clock for one request.
func (s *Server) queryContext(r *http.Request) query.Context {
	qctx := query.Context{Now: s.now, Location: s.location}
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		qctx.ActingUserID = userID.String()
	}
	return qctx
}

func authUserID(r *http.Request) (uuid.UUID, bool) {
	return auth.UserIDFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

type errorPayload struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSystemView):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNoFilters):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorPayload{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorPayload{Error: message})
}

// pathID extracts the trailing UUID segment of a resource path such as
// /api/clients/{id} or /api/workflows/{id}/run_matches.
func pathID(path, prefix string) (uuid.UUID, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return uuid.Nil, "", false
	}
	segments := strings.SplitN(rest, "/", 2)
	id, err := uuid.Parse(segments[0])
	if err != nil {
		return uuid.Nil, "", false
	}
	action := ""
	if len(segments) == 2 {
		action = segments[1]
	}
	return id, action, true
}
