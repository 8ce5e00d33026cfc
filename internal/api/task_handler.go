package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
)

type taskHandler struct {
	server *Server
}

func (h *taskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, action, hasID := pathID(r.URL.Path, "/api/tasks")

	switch {
	case !hasID && r.Method == http.MethodGet:
		h.handleList(w, r)
	case !hasID && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case hasID && action == "status" && r.Method == http.MethodPatch:
		h.handleSetStatus(w, r, id)
	case hasID && action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case hasID && action == "" && r.Method == http.MethodPut:
		h.handleUpdate(w, r, id)
	case hasID && action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *taskHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.server.parseListQuery(r, domain.ViewTypeTask)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, err)
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	tasks, total, err := h.server.tasks.List(r.Context(), q, h.server.queryContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Task]{
		Items:    tasks,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

type taskPayload struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	DueDate      *time.Time `json:"due_date"`
	ClientID     uuid.UUID  `json:"client"`
	AssignedToID *uuid.UUID `json:"assigned_to"`
}

func (h *taskHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.Title == "" {
		writeBadRequest(w, "title is required")
		return
	}
	if payload.ClientID == uuid.Nil {
		writeBadRequest(w, "client is required")
		return
	}

	created, err := h.server.tasks.Create(r.Context(), domain.Task{
		Title:        payload.Title,
		Description:  payload.Description,
		Status:       payload.Status,
		Priority:     payload.Priority,
		DueDate:      payload.DueDate,
		ClientID:     payload.ClientID,
		AssignedToID: payload.AssignedToID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *taskHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	task, err := h.server.tasks.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *taskHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.Title == "" {
		writeBadRequest(w, "title is required")
		return
	}

	updated, err := h.server.tasks.Update(r.Context(), domain.Task{
		ID:           id,
		Title:        payload.Title,
		Description:  payload.Description,
		Priority:     payload.Priority,
		DueDate:      payload.DueDate,
		ClientID:     payload.ClientID,
		AssignedToID: payload.AssignedToID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type statusPayload struct {
	Status string `json:"status"`
}

func (h *taskHandler) handleSetStatus(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	switch payload.Status {
	case domain.TaskStatusTodo, domain.TaskStatusInProgress, domain.TaskStatusDone:
	default:
		writeBadRequest(w, fmt.Sprintf("unknown status %q", payload.Status))
		return
	}

	updated, err := h.server.tasks.SetStatus(r.Context(), id, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *taskHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.server.tasks.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
