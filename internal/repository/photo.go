package repository

import (
	"context"
	"fmt"

	"dating-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const photoColumns = `id, account_id, url, description, date_added, is_main, is_approved, COALESCE(public_id, '')`

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db DB
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	err := row.Scan(&p.ID, &p.AccountID, &p.URL, &p.Description, &p.DateAdded,
		&p.IsMain, &p.IsApproved, &p.PublicID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, p *models.Photo) error {
	query := `
		INSERT INTO photos (id, account_id, url, description, date_added, is_main, is_approved, public_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.AccountID, p.URL, p.Description, p.DateAdded, p.IsMain, p.IsApproved, p.PublicID,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", classify(err))
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	p, err := scanPhoto(r.db.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", classify(err))
	}
	return p, nil
}

// ListByAccount returns an account's photos, oldest first
func (r *PhotoRepository) ListByAccount(ctx context.Context, accountID string, includeUnapproved bool) ([]*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE account_id = $1`
	if !includeUnapproved {
		query += ` AND is_approved`
	}
	query += ` ORDER BY date_added, id`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	photos := []*models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// HasMain reports whether the account already has a main photo
func (r *PhotoRepository) HasMain(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM photos WHERE account_id = $1 AND is_main)`, accountID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check main photo: %w", err)
	}
	return exists, nil
}

// SetMain moves the main flag of an account to the given photo
func (r *PhotoRepository) SetMain(ctx context.Context, accountID, photoID string) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE photos SET is_main = FALSE WHERE account_id = $1 AND is_main AND id <> $2`,
			accountID, photoID)
		if err != nil {
			return fmt.Errorf("failed to clear main photo: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE photos SET is_main = TRUE WHERE account_id = $1 AND id = $2`, accountID, photoID)
		if err != nil {
			return fmt.Errorf("failed to set main photo: %w", classify(err))
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("failed to set main photo: %w", ErrNotFound)
		}
		return nil
	})
}

// Delete removes a photo row
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete photo: %w", ErrNotFound)
	}
	return nil
}

// Approve marks a photo as approved
func (r *PhotoRepository) Approve(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE photos SET is_approved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to approve photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to approve photo: %w", ErrNotFound)
	}
	return nil
}

// ListUnapproved returns photos awaiting moderation with their owners' usernames
func (r *PhotoRepository) ListUnapproved(ctx context.Context) ([]*models.PhotoForModeration, error) {
	query := `
		SELECT p.id, a.username, p.url, p.is_approved
		FROM photos p
		JOIN accounts a ON a.id = p.account_id
		WHERE NOT p.is_approved
		ORDER BY p.date_added, p.id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos for moderation: %w", err)
	}
	defer rows.Close()

	out := []*models.PhotoForModeration{}
	for rows.Next() {
		var p models.PhotoForModeration
		if err := rows.Scan(&p.ID, &p.Username, &p.URL, &p.IsApproved); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
