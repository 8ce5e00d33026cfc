package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"crm-api/internal/domain"
)

type clientHandler struct {
	server *Server
}

func (h *clientHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, action, hasID := pathID(r.URL.Path, "/api/clients")

	switch {
	case !hasID && r.Method == http.MethodGet:
		h.handleList(w, r)
	case !hasID && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case hasID && action == "notes" && r.Method == http.MethodGet:
		h.handleListNotes(w, r, id)
	case hasID && action == "notes" && r.Method == http.MethodPost:
		h.handleCreateNote(w, r, id)
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

func (h *clientHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q, _, err := h.server.parseListQuery(r, domain.ViewTypeClient)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, err)
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	clients, total, err := h.server.clients.List(r.Context(), q, h.server.queryContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Client]{
		Items:    clients,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

type clientPayload struct {
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Phone   *string    `json:"phone"`
	Address *string    `json:"address"`
	OwnerID *uuid.UUID `json:"owner"`
}

func (h *clientHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload clientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.Name == "" {
		writeError(w, domain.ErrNameRequired)
		return
	}

	created, err := h.server.clients.Create(r.Context(), domain.Client{
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Address: payload.Address,
		OwnerID: payload.OwnerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Fire automation rules after the record exists. Rule failures never
	// fail the create.
	h.server.workflowSvc.HandleClientCreated(r.Context(), created)

	writeJSON(w, http.StatusCreated, created)
}

func (h *clientHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	client, err := h.server.clients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *clientHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	defer r.Body.Close()
	var payload clientPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.Name == "" {
		writeError(w, domain.ErrNameRequired)
		return
	}

	updated, err := h.server.clients.Update(r.Context(), domain.Client{
		ID:      id,
		Name:    payload.Name,
		Email:   payload.Email,
		Phone:   payload.Phone,
		Address: payload.Address,
		OwnerID: payload.OwnerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *clientHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.server.clients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *clientHandler) handleListNotes(w http.ResponseWriter, r *http.Request, clientID uuid.UUID) {
	notes, err := h.server.notes.ListByClient(r.Context(), clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

type notePayload struct {
	Content string `json:"content"`
}

func (h *clientHandler) handleCreateNote(w http.ResponseWriter, r *http.Request, clientID uuid.UUID) {
	defer r.Body.Close()
	var payload notePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
		return
	}
	if payload.Content == "" {
		writeBadRequest(w, "content is required")
		return
	}

	// The client must exist; a dangling note reference is a 404 here, not
	// a 500 from the foreign key.
	if _, err := h.server.clients.GetByID(r.Context(), clientID); err != nil {
		writeError(w, err)
		return
	}

	note := domain.Note{ClientID: clientID, Content: payload.Content}
	if userID, ok := authUserID(r); ok {
		note.AuthorID = &userID
	}
	created, err := h.server.notes.Create(r.Context(), note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
