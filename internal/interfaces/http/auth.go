package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"finale/internal/domain/user"
	"finale/internal/shared/auth"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	userRepo user.Repository
	jwt      *auth.JWT
}

func NewAuthHandler(userRepo user.Repository, jwt *auth.JWT) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, jwt: jwt}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// HandleRegister creates a new user account and issues a session token
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "password must be at least 8 characters")
		return
	}
	if req.Name == "" {
		req.Name = req.Email[:strings.Index(req.Email, "@")]
	}

	if _, err := h.userRepo.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, codeInvalidRequest, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create user")
		return
	}

	u, err := h.userRepo.Create(r.Context(), user.CreateUserParams{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &hash,
	})
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create user")
		return
	}

	h.issueSession(w, r, u, http.StatusCreated)
}

// HandleLogin verifies credentials and issues a session token
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	u, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "invalid email or password")
		return
	}

	if u.PasswordHash == nil || auth.VerifyPassword(*u.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, codeInvalidRequest, "invalid email or password")
		return
	}

	h.issueSession(w, r, u, http.StatusOK)
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	token, err := h.jwt.Generate(u.ID, u.Email)
	if err != nil {
		log.Printf("Error generating session token for user %d: %v", u.ID, err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, status, AuthResponse{Token: token, User: u})
}
