package handlers

import (
	"context"
	"net/http"
	"time"

	"dating-backend/internal/models"
	"dating-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// Authenticator registers accounts and logs them in
type Authenticator interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
}

// AuthHandler handles sign-up and login
type AuthHandler struct {
	auth Authenticator
	now  func() time.Time
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth, now: time.Now}
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to register account")
		return
	}

	log.Info().
		Str("user_id", account.ID).
		Str("username", account.Username).
		Msg("Account registered")

	respondJSON(w, http.StatusCreated, account.Summary(h.now()))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, r, err, "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
