package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"crm-api/internal/domain"
)

type viewHandler struct {
	server *Server
}

func (h *viewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, action, hasID := pathID(r.URL.Path, "/api/views")

	switch {
	case !hasID && r.Method == http.MethodGet:
		h.handleList(w, r)
	case !hasID && r.Method == http.MethodPost:
		if r.URL.Path == "/api/views/reorder" {
			h.handleReorder(w, r)
			return
		}
		h.handleCreate(w, r)
	case hasID && action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case hasID && action == "" && r.Method == http.MethodPatch:
		h.handlePatch(w, r, id)
	case hasID && action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *viewHandler) handleList(w http.ResponseWriter, r *http.Request) {
	viewType := domain.ViewType(r.URL.Query().Get("view_type"))
	if viewType != domain.ViewTypeClient && viewType != domain.ViewTypeTask {
		writeBadRequest(w, "view_type must be client or task")
		return
	}
	views, err := h.server.views.ListByType(r.Context(), viewType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type viewPayload struct {
	Name        string           `json:"name"`
	ViewType    domain.ViewType  `json:"view_type"`
	Filters     json.RawMessage  `json:"filters"`
	ColumnOrder []string         `json:"column_order"`
	Sorting     *domain.SortSpec `json:"sorting"`
}

func (h *viewHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload viewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.ViewType != domain.ViewTypeClient && payload.ViewType != domain.ViewTypeTask {
		writeBadRequest(w, "view_type must be client or task")
		return
	}
	if len(payload.Filters) > 0 {
		if _, _, err := domain.ParseFilterTree(payload.Filters); err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid filters: %v", err))
			return
		}
	}

	view := domain.SavedView{
		Name:        payload.Name,
		ViewType:    payload.ViewType,
		Filters:     payload.Filters,
		ColumnOrder: payload.ColumnOrder,
		Sorting:     payload.Sorting,
	}
	if userID, ok := authUserID(r); ok {
		view.UserID = userID
	}

	created, err := h.server.views.Create(r.Context(), view)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *viewHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	view, err := h.server.views.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *viewHandler) handlePatch(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var patch domain.SavedViewPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if patch.Filters != nil && len(*patch.Filters) > 0 {
		if _, _, err := domain.ParseFilterTree(*patch.Filters); err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid filters: %v", err))
			return
		}
	}

	updated, err := h.server.views.Patch(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type reorderPayload struct {
	ViewType domain.ViewType `json:"view_type"`
	Order    []uuid.UUID     `json:"order"`
}

func (h *viewHandler) handleReorder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.ViewType != domain.ViewTypeClient && payload.ViewType != domain.ViewTypeTask {
		writeBadRequest(w, "view_type must be client or task")
		return
	}
	if len(payload.Order) == 0 {
		writeBadRequest(w, "order is required")
		return
	}

	if err := h.server.views.Reorder(r.Context(), payload.ViewType, payload.Order); err != nil {
		writeError(w, err)
		return
	}
	views, err := h.server.views.ListByType(r.Context(), payload.ViewType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *viewHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.server.views.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
