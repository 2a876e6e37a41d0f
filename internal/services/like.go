package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/metrics"
	"dating-backend/internal/models"
	"dating-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// LikeService handles the like graph
type LikeService struct {
	likes    LikeStore
	accounts AccountStore
	notifier Notifier
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewLikeService creates a new like service
func NewLikeService(likes LikeStore, accounts AccountStore, notifier Notifier, rec metrics.Recorder) *LikeService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LikeService{
		likes:    likes,
		accounts: accounts,
		notifier: notifier,
		metrics:  rec,
		now:      time.Now,
	}
}

// Like records that likerID likes likeeID. The caller must be the liker.
func (s *LikeService) Like(ctx context.Context, claims auth.Claims, likerID, likeeID string) (*models.Like, error) {
	if err := auth.Authorize(claims, likerID); err != nil {
		return nil, err
	}
	if likerID == likeeID {
		return nil, ErrCannotLikeSelf
	}

	exists, err := s.accounts.Exists(ctx, likeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	like := &models.Like{
		LikerID:   likerID,
		LikeeID:   likeeID,
		CreatedAt: s.now(),
	}
	if err := s.likes.Create(ctx, like); err != nil {
		switch {
		case errors.Is(err, repository.ErrUniqueViolation):
			s.metrics.RecordDuplicateLike()
			return nil, ErrDuplicateLike
		case errors.Is(err, repository.ErrForeignKeyViolation):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to like user: %w", err)
	}
	s.metrics.RecordLikeCreated()

	log.Info().Str("liker_id", likerID).Str("likee_id", likeeID).Msg("Like created")

	s.notifier.Notify(ctx, likeeID, WSMessage{
		Type:      EventLiked,
		Timestamp: like.CreatedAt.UnixMilli(),
		Message:   "Someone liked your profile",
		Data:      map[string]string{"likerId": likerID},
	})
	return like, nil
}

// LikersOf returns the IDs of accounts that like accountID
func (s *LikeService) LikersOf(ctx context.Context, accountID string) ([]string, error) {
	return s.likes.LikersOf(ctx, accountID)
}

// LikeesOf returns the IDs of accounts accountID likes
func (s *LikeService) LikeesOf(ctx context.Context, accountID string) ([]string, error) {
	return s.likes.LikeesOf(ctx, accountID)
}
