package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"crm-api/internal/domain"
)

type userHandler struct {
	server *Server
}

func (h *userHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := h.server.users.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case http.MethodPost:
		defer r.Body.Close()
		var payload struct {
			Username string `json:"username"`
			Email    string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeBadRequest(w, fmt.Sprintf("invalid payload: %v", err))
			return
		}
		if payload.Username == "" || payload.Email == "" {
			writeBadRequest(w, "username and email are required")
			return
		}
		created, err := h.server.users.Create(r.Context(), domain.User{
			Username: payload.Username,
			Email:    payload.Email,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
