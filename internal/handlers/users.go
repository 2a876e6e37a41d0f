package handlers

import (
	"context"
	"net/http"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"
	"dating-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// Discoverer lists candidate profiles
type Discoverer interface {
	Discover(ctx context.Context, claims auth.Claims, p services.DiscoveryParams) (*pagination.Page[models.AccountSummary], error)
}

// ProfileManager reads and edits account profiles
type ProfileManager interface {
	Get(ctx context.Context, claims auth.Claims, id string) (*models.AccountDetail, error)
	UpdateProfile(ctx context.Context, claims auth.Claims, id string, u services.ProfileUpdate) error
	UpdatePushToken(ctx context.Context, claims auth.Claims, id, deviceToken string) error
}

// Liker records likes
type Liker interface {
	Like(ctx context.Context, claims auth.Claims, likerID, likeeID string) (*models.Like, error)
}

// UserHandler handles discovery, profiles and likes
type UserHandler struct {
	discovery Discoverer
	profiles  ProfileManager
	likes     Liker
	pages     PageConfig
}

// NewUserHandler creates a new user handler
func NewUserHandler(discovery Discoverer, profiles ProfileManager, likes Liker, pages PageConfig) *UserHandler {
	return &UserHandler{
		discovery: discovery,
		profiles:  profiles,
		likes:     likes,
		pages:     pages,
	}
}

// PushTokenRequest registers a device for push alerts
type PushTokenRequest struct {
	Token string `json:"token"`
}

// Discover handles GET /api/users
func (h *UserHandler) Discover(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := services.NewDiscoveryParams(
		h.pages.params(r),
		q.Get("gender"),
		queryInt(q.Get("minAge"), services.DefaultMinAge),
		queryInt(q.Get("maxAge"), services.DefaultMaxAge),
		q.Get("orderBy"),
		queryBool(q.Get("likers")),
		queryBool(q.Get("likees")),
	)

	page, err := h.discovery.Discover(r.Context(), claims, params)
	if err != nil {
		respondServiceError(w, r, err, "Failed to discover users")
		return
	}

	setPaginationHeader(w, page.Meta)
	respondJSON(w, http.StatusOK, page.Items)
}

// GetUser handles GET /api/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	detail, err := h.profiles.Get(r.Context(), claims, chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// UpdateUser handles PUT /api/users/{userId}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.profiles.UpdateProfile(r.Context(), claims, chi.URLParam(r, "userId"), req); err != nil {
		respondServiceError(w, r, err, "Failed to update user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdatePushToken handles PUT /api/users/{userId}/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	var req PushTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.profiles.UpdatePushToken(r.Context(), claims, chi.URLParam(r, "userId"), req.Token); err != nil {
		respondServiceError(w, r, err, "Failed to update push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /api/users/{userId}/like/{recipientId}
func (h *UserHandler) Like(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	like, err := h.likes.Like(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "recipientId"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to like user")
		return
	}

	respondJSON(w, http.StatusCreated, like)
}
