package repository

import (
	"context"
	"fmt"

	"dating-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// LikeRepository handles database operations for likes
type LikeRepository struct {
	db DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Create records a like. A repeated like returns ErrUniqueViolation.
func (r *LikeRepository) Create(ctx context.Context, l *models.Like) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO likes (liker_id, likee_id, created_at) VALUES ($1, $2, $3)`,
		l.LikerID, l.LikeeID, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create like: %w", classify(err))
	}
	return nil
}

// LikersOf returns the IDs of accounts that like the given account
func (r *LikeRepository) LikersOf(ctx context.Context, accountID string) ([]string, error) {
	return r.ids(ctx, `SELECT liker_id FROM likes WHERE likee_id = $1`, accountID)
}

// LikeesOf returns the IDs of accounts the given account likes
func (r *LikeRepository) LikeesOf(ctx context.Context, accountID string) ([]string, error) {
	return r.ids(ctx, `SELECT likee_id FROM likes WHERE liker_id = $1`, accountID)
}

func (r *LikeRepository) ids(ctx context.Context, query, accountID string) ([]string, error) {
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan likes: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
