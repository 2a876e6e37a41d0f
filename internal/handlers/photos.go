package handlers

import (
	"context"
	"net/http"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
	"dating-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PhotoManager is the owner-facing photo surface
type PhotoManager interface {
	RequestUpload(ctx context.Context, claims auth.Claims, ownerID, contentType, description string) (*services.UploadResponse, error)
	Get(ctx context.Context, claims auth.Claims, photoID string) (*models.Photo, error)
	SetMain(ctx context.Context, claims auth.Claims, ownerID, photoID string) error
	Delete(ctx context.Context, claims auth.Claims, ownerID, photoID string) error
}

// PhotoHandler handles photo-related HTTP requests
type PhotoHandler struct {
	photos PhotoManager
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photos PhotoManager) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// UploadRequest asks for a presigned upload slot
type UploadRequest struct {
	ContentType string `json:"contentType"`
	Description string `json:"description"`
}

// RequestUpload handles POST /api/users/{userId}/photos
func (h *PhotoHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	var req UploadRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	response, err := h.photos.RequestUpload(r.Context(), claims, chi.URLParam(r, "userId"), req.ContentType, req.Description)
	if err != nil {
		respondServiceError(w, r, err, "Failed to generate pre-signed URL")
		return
	}

	log.Info().
		Str("user_id", claims.Subject).
		Str("photo_id", response.Photo.ID).
		Bool("is_main", response.Photo.IsMain).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusCreated, response)
}

// GetPhoto handles GET /api/users/{userId}/photos/{id}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	photo, err := h.photos.Get(r.Context(), claims, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get photo")
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// SetMain handles POST /api/users/{userId}/photos/{id}/setMain
func (h *PhotoHandler) SetMain(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if err := h.photos.SetMain(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "Failed to set main photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePhoto handles DELETE /api/users/{userId}/photos/{id}
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsOrReject(w, r)
	if !ok {
		return
	}

	if err := h.photos.Delete(r.Context(), claims, chi.URLParam(r, "userId"), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, r, err, "Failed to delete photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
