package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"crm-api/internal/domain"
)

type workflowHandler struct {
	server *Server
}

func (h *workflowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, action, hasID := pathID(r.URL.Path, "/api/workflows")

	switch {
	case !hasID && r.Method == http.MethodGet:
		h.handleList(w, r)
	case !hasID && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case hasID && action == "preview_count" && r.Method == http.MethodGet:
		h.handlePreviewCount(w, r, id)
	case hasID && action == "run_matches" && r.Method == http.MethodPost:
		h.handleRunMatches(w, r, id)
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

func (h *workflowHandler) handleList(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.server.workflows.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows)
}

type workflowPayload struct {
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	TriggerType  string          `json:"trigger_type"`
	ActionType   string          `json:"action_type"`
	ActionConfig json.RawMessage `json:"action_config"`
	Filters      json.RawMessage `json:"filters"`
	IsActive     *bool           `json:"is_active"`
}

func (p workflowPayload) validate() error {
	if p.Name == "" {
		return domain.ErrNameRequired
	}
	if p.TriggerType != domain.TriggerClientCreated {
		return fmt.Errorf("unknown trigger_type %q", p.TriggerType)
	}
	if p.ActionType != domain.ActionCreateTask && p.ActionType != domain.ActionSendEmail {
		return fmt.Errorf("unknown action_type %q", p.ActionType)
	}
	if len(p.Filters) > 0 {
		if _, _, err := domain.ParseFilterTree(p.Filters); err != nil {
			return fmt.Errorf("invalid filters: %v", err)
		}
	}
	return nil
}

func (p workflowPayload) toDomain(id uuid.UUID) domain.Workflow {
	wf := domain.Workflow{
		ID:           id,
		Name:         p.Name,
		Description:  p.Description,
		TriggerType:  p.TriggerType,
		ActionType:   p.ActionType,
		ActionConfig: p.ActionConfig,
		Filters:      p.Filters,
		IsActive:     true,
	}
	if p.IsActive != nil {
		wf.IsActive = *p.IsActive
	}
	return wf
}

func (h *workflowHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if err := payload.validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	wf := payload.toDomain(uuid.Nil)
	if userID, ok := authUserID(r); ok {
		wf.OwnerID = userID
	}

	created, err := h.server.workflows.Create(r.Context(), wf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *workflowHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	wf, err := h.server.workflows.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (h *workflowHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var payload workflowPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if err := payload.validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	current, err := h.server.workflows.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	wf := payload.toDomain(id)
	wf.OwnerID = current.OwnerID

	updated, err := h.server.workflows.Update(r.Context(), wf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *workflowHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.server.workflows.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewCountPayload struct {
	// Count is null for an unconditional rule: there is nothing to gate.
	Count *int64 `json:"count"`
}

func (h *workflowHandler) handlePreviewCount(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	count, err := h.server.workflowSvc.PreviewCount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewCountPayload{Count: count})
}

func (h *workflowHandler) handleRunMatches(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	result, err := h.server.workflowSvc.RunForMatches(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
