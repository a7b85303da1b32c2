package http

import (
	"encoding/json"
	"log"
	"net/http"

	"finale/internal/domain/user"
	"finale/internal/shared/middleware"
)

type UserHandler struct {
	userRepo user.Repository
}

func NewUserHandler(userRepo user.Repository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// UserResponse adds the link status to the user record. The credential
// itself is never serialized.
type UserResponse struct {
	*user.User
	HasLinkedBank bool `json:"hasLinkedBank"`
}

// HandleMe handles both GET and PATCH requests for the current user
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetMe(w, r, userID)
	case http.MethodPatch:
		h.handleUpdateMe(w, r, userID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UserHandler) handleGetMe(w http.ResponseWriter, r *http.Request, userID int64) {
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, codeInvalidRequest, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: u, HasLinkedBank: u.HasCredential()})
}

func (h *UserHandler) handleUpdateMe(w http.ResponseWriter, r *http.Request, userID int64) {
	var params user.UpdateUserParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	u, err := h.userRepo.Update(r.Context(), userID, params)
	if err != nil {
		log.Printf("Error updating user %d: %v", userID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: u, HasLinkedBank: u.HasCredential()})
}
