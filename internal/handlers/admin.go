package handlers

import (
	"context"
	"net/http"
	"strings"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// RoleEditor lists and edits account roles
type RoleEditor interface {
	UsersWithRoles(ctx context.Context, claims auth.Claims) ([]*models.AccountRoles, error)
	EditRoles(ctx context.Context, claims auth.Claims, username string, roleNames []string) ([]string, error)
}

// PhotoModerator judges unapproved photos
type PhotoModerator interface {
	ForModeration(ctx context.Context, claims auth.Claims) ([]*models.PhotoForModeration, error)
	Approve(ctx context.Context, claims auth.Claims, photoID string) error
	Reject(ctx context.Context, claims auth.Claims, photoID string) error
}

// AdminHandler handles role administration and photo moderation
type AdminHandler struct {
	roles      RoleEditor
	moderation PhotoModerator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(roles RoleEditor, moderation PhotoModerator) *AdminHandler {
	return &AdminHandler{roles: roles, moderation: moderation}
}

// UsersWithRoles handles GET /api/admin/usersWithRoles
func (h *AdminHandler) UsersWithRoles(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	users, err := h.roles.UsersWithRoles(r.Context(), claims)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list users with roles")
		return
	}

	respondJSON(w, http.StatusOK, users)
}

// EditRoles handles POST /api/admin/editRoles/{userName}?roles=Member,VIP
func (h *AdminHandler) EditRoles(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	var names []string
	for _, name := range strings.Split(r.URL.Query().Get("roles"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	username := chi.URLParam(r, "userName")
	roles, err := h.roles.EditRoles(r.Context(), claims, username, names)
	if err != nil {
		respondServiceError(w, r, err, "Failed to edit roles")
		return
	}

	log.Info().
		Str("user_id", claims.Subject).
		Str("target", username).
		Strs("roles", roles).
		Msg("Roles updated")

	respondJSON(w, http.StatusOK, roles)
}

// PhotosForModeration handles GET /api/admin/photosForModeration
func (h *AdminHandler) PhotosForModeration(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	photos, err := h.moderation.ForModeration(r.Context(), claims)
	if err != nil {
		respondServiceError(w, r, err, "Failed to list photos for moderation")
		return
	}

	respondJSON(w, http.StatusOK, photos)
}

// ApprovePhoto handles POST /api/admin/approvePhoto/{photoId}
func (h *AdminHandler) ApprovePhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if err := h.moderation.Approve(r.Context(), claims, chi.URLParam(r, "photoId")); err != nil {
		respondServiceError(w, r, err, "Failed to approve photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RejectPhoto handles POST /api/admin/rejectPhoto/{photoId}
func (h *AdminHandler) RejectPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if err := h.moderation.Reject(r.Context(), claims, chi.URLParam(r, "photoId")); err != nil {
		respondServiceError(w, r, err, "Failed to reject photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
