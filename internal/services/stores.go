package services

import (
	"context"
	"errors"
	"time"

	"dating-backend/internal/models"
	"dating-backend/internal/pagination"
	"dating-backend/internal/repository"
)

// AccountStore persists accounts and role assignments
type AccountStore interface {
	Create(ctx context.Context, a *models.Account, roles []string) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateProfile(ctx context.Context, a *models.Account) error
	UpdatePushToken(ctx context.Context, id string, token *string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	GetRoles(ctx context.Context, id string) ([]string, error)
	ReplaceRoles(ctx context.Context, id string, roles []string) ([]string, error)
	ListWithRoles(ctx context.Context) ([]*models.AccountRoles, error)
	Discover(f repository.AccountFilter) pagination.Source[*models.Account]
}

// PhotoStore persists photos
type PhotoStore interface {
	Create(ctx context.Context, p *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	ListByAccount(ctx context.Context, accountID string, includeUnapproved bool) ([]*models.Photo, error)
	HasMain(ctx context.Context, accountID string) (bool, error)
	SetMain(ctx context.Context, accountID, photoID string) error
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id string) error
	ListUnapproved(ctx context.Context) ([]*models.PhotoForModeration, error)
}

// LikeStore persists like edges
type LikeStore interface {
	Create(ctx context.Context, l *models.Like) error
	LikersOf(ctx context.Context, accountID string) ([]string, error)
	LikeesOf(ctx context.Context, accountID string) ([]string, error)
}

// MessageStore persists messages and their tombstones
type MessageStore interface {
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	GetView(ctx context.Context, id string) (*models.MessageView, error)
	MarkRead(ctx context.Context, id string, at time.Time) (*models.Message, error)
	UpdateTombstones(ctx context.Context, id string, mutate func(*models.Message) error) (bool, error)
	Mailbox(accountID string, container models.MessageContainer) pagination.Source[*models.MessageView]
	Thread(ctx context.Context, viewerID, otherID string) ([]*models.MessageView, error)
}

// MediaHost stores photo objects outside the database
type MediaHost interface {
	PresignUpload(ctx context.Context, key, contentType string) (uploadURL string, expires time.Duration, err error)
	ObjectURL(key string) string
	DeleteObject(ctx context.Context, key string) error
}

// isNotFound reports whether a store error means the row does not exist
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
