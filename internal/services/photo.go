package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
	"dating-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UploadResponse is returned when an upload slot is created
type UploadResponse struct {
	UploadURL string        `json:"uploadUrl"`
	ExpiresIn int           `json:"expiresIn"`
	Photo     *models.Photo `json:"photo"`
}

// moderators may see and judge photos that are not approved yet
var moderators = []auth.Role{auth.RoleAdmin, auth.RoleModerator}

// PhotoService handles photo uploads, the main photo and moderation
type PhotoService struct {
	photos PhotoStore
	media  MediaHost
	now    func() time.Time
}

// NewPhotoService creates a new photo service
func NewPhotoService(photos PhotoStore, media MediaHost) *PhotoService {
	return &PhotoService{
		photos: photos,
		media:  media,
		now:    time.Now,
	}
}

// RequestUpload creates a pending photo and a presigned URL to upload it
func (s *PhotoService) RequestUpload(ctx context.Context, claims auth.Claims, ownerID, contentType, description string) (*UploadResponse, error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalid("contentType", "must be an image type")
	}

	hasMain, err := s.photos.HasMain(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to check main photo: %w", err)
	}

	photoID := uuid.New().String()
	// Key: {account_id}/{photo_id}.jpg
	key := fmt.Sprintf("%s/%s.jpg", ownerID, photoID)

	uploadURL, expires, err := s.media.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	photo := &models.Photo{
		ID:          photoID,
		AccountID:   ownerID,
		URL:         s.media.ObjectURL(key),
		Description: strings.TrimSpace(description),
		DateAdded:   s.now(),
		IsMain:      !hasMain,
		PublicID:    key,
	}
	err = s.photos.Create(ctx, photo)
	if photo.IsMain && errors.Is(err, repository.ErrUniqueViolation) {
		// a concurrent upload took the main slot first
		photo.IsMain = false
		err = s.photos.Create(ctx, photo)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}

	return &UploadResponse{
		UploadURL: uploadURL,
		ExpiresIn: int(expires.Seconds()),
		Photo:     photo,
	}, nil
}

func (s *PhotoService) get(ctx context.Context, id string) (*models.Photo, error) {
	p, err := s.photos.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

// owned loads a photo and checks that ownerID owns it
func (s *PhotoService) owned(ctx context.Context, claims auth.Claims, ownerID, photoID string) (*models.Photo, error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	p, err := s.get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != ownerID {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// Get returns a photo. Unapproved photos are visible to their owner and moderators only.
func (s *PhotoService) Get(ctx context.Context, claims auth.Claims, photoID string) (*models.Photo, error) {
	if err := auth.Authorize(claims, ""); err != nil {
		return nil, err
	}
	p, err := s.get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved && p.AccountID != claims.Subject && !auth.RoleMatch(claims, moderators...) {
		return nil, ErrNotFound
	}
	return p, nil
}

// SetMain makes photoID the owner's main photo
func (s *PhotoService) SetMain(ctx context.Context, claims auth.Claims, ownerID, photoID string) error {
	p, err := s.owned(ctx, claims, ownerID, photoID)
	if err != nil {
		return err
	}
	if p.IsMain {
		return ErrAlreadyMain
	}
	if err := s.photos.SetMain(ctx, ownerID, photoID); err != nil {
		return fmt.Errorf("failed to set main photo: %w", err)
	}
	return nil
}

// Delete removes one of the owner's photos. The main photo cannot be deleted.
func (s *PhotoService) Delete(ctx context.Context, claims auth.Claims, ownerID, photoID string) error {
	p, err := s.owned(ctx, claims, ownerID, photoID)
	if err != nil {
		return err
	}
	if p.IsMain {
		return ErrMainPhoto
	}
	return s.remove(ctx, p)
}

// remove deletes the stored object before the row
func (s *PhotoService) remove(ctx context.Context, p *models.Photo) error {
	if p.PublicID != "" {
		if err := s.media.DeleteObject(ctx, p.PublicID); err != nil {
			return fmt.Errorf("failed to delete photo object: %w", err)
		}
	}
	if err := s.photos.Delete(ctx, p.ID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	log.Info().Str("photo_id", p.ID).Str("user_id", p.AccountID).Msg("Photo deleted")
	return nil
}

// ForModeration lists photos awaiting approval
func (s *PhotoService) ForModeration(ctx context.Context, claims auth.Claims) ([]*models.PhotoForModeration, error) {
	if err := auth.RequireRoles(claims, moderators...); err != nil {
		return nil, err
	}
	photos, err := s.photos.ListUnapproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos for moderation: %w", err)
	}
	return photos, nil
}

// Approve publishes a photo
func (s *PhotoService) Approve(ctx context.Context, claims auth.Claims, photoID string) error {
	if err := auth.RequireRoles(claims, moderators...); err != nil {
		return err
	}
	if err := s.photos.Approve(ctx, photoID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to approve photo: %w", err)
	}
	return nil
}

// Reject deletes a photo that failed moderation. Main photos cannot be rejected.
func (s *PhotoService) Reject(ctx context.Context, claims auth.Claims, photoID string) error {
	if err := auth.RequireRoles(claims, moderators...); err != nil {
		return err
	}
	p, err := s.get(ctx, photoID)
	if err != nil {
		return err
	}
	if p.IsMain {
		return ErrMainPhoto
	}
	return s.remove(ctx, p)
}
