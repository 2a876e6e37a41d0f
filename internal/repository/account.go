package repository

import (
	"context"
	"fmt"
	"time"

	"dating-backend/internal/models"
	"dating-backend/internal/pagination"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `a.id, a.username, a.password_hash, a.gender, a.date_of_birth, a.known_as,
	a.created, a.last_active, a.introduction, a.looking_for, a.interests, a.city, a.country, a.push_token`

// mainPhotoJoin picks the approved main photo of the account aliased as %[1]s
const mainPhotoJoin = `
	LEFT JOIN LATERAL (
		SELECT p.url FROM photos p
		WHERE p.account_id = %[1]s.id AND p.is_main AND p.is_approved
		LIMIT 1
	) %[2]s ON TRUE`

// AccountRepository handles database operations for accounts and their roles
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.PasswordHash, &a.Gender, &a.DateOfBirth, &a.KnownAs,
		&a.Created, &a.LastActive, &a.Introduction, &a.LookingFor, &a.Interests,
		&a.City, &a.Country, &a.PushToken,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an account together with its roles
func (r *AccountRepository) Create(ctx context.Context, a *models.Account, roles []string) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO accounts (id, username, password_hash, gender, date_of_birth, known_as,
				created, last_active, introduction, looking_for, interests, city, country)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		_, err := tx.Exec(ctx, query,
			a.ID, a.Username, a.PasswordHash, a.Gender, a.DateOfBirth, a.KnownAs,
			a.Created, a.LastActive, a.Introduction, a.LookingFor, a.Interests, a.City, a.Country,
		)
		if err != nil {
			return fmt.Errorf("failed to create account: %w", classify(err))
		}
		if err := insertRoles(ctx, tx, a.ID, roles); err != nil {
			return err
		}
		return nil
	})
}

func insertRoles(ctx context.Context, tx pgx.Tx, accountID string, roles []string) error {
	for _, role := range roles {
		_, err := tx.Exec(ctx,
			`INSERT INTO account_roles (account_id, role_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			accountID, role,
		)
		if err != nil {
			return fmt.Errorf("failed to add role %s: %w", role, classify(err))
		}
	}
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", classify(err))
	}
	return a, nil
}

// GetByUsername retrieves an account by its lowercased username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.username = $1`
	a, err := scanAccount(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to get account by username: %w", classify(err))
	}
	return a, nil
}

// Exists reports whether an account with the given ID exists
func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

// UpdateProfile saves the editable profile fields
func (r *AccountRepository) UpdateProfile(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET introduction = $2, looking_for = $3, interests = $4, city = $5, country = $6
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, a.ID, a.Introduction, a.LookingFor, a.Interests, a.City, a.Country)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update account: %w", ErrNotFound)
	}
	return nil
}

// UpdatePushToken sets or clears the APNs device token
func (r *AccountRepository) UpdatePushToken(ctx context.Context, id string, token *string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET push_token = $2 WHERE id = $1`, id, token)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update push token: %w", ErrNotFound)
	}
	return nil
}

// TouchLastActive stamps the account's last activity time
func (r *AccountRepository) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts SET last_active = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

// GetRoles returns the role names held by an account
func (r *AccountRepository) GetRoles(ctx context.Context, id string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role_name FROM account_roles WHERE account_id = $1 ORDER BY role_name`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles: %w", err)
	}
	return roles, nil
}

// ReplaceRoles makes the account hold exactly the given roles and returns them
func (r *AccountRepository) ReplaceRoles(ctx context.Context, id string, roles []string) ([]string, error) {
	if roles == nil {
		roles = []string{}
	}
	var out []string
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM account_roles WHERE account_id = $1 AND NOT (role_name = ANY($2))`, id, roles)
		if err != nil {
			return fmt.Errorf("failed to remove roles: %w", err)
		}
		if err := insertRoles(ctx, tx, id, roles); err != nil {
			return err
		}
		rows, err := tx.Query(ctx,
			`SELECT role_name FROM account_roles WHERE account_id = $1 ORDER BY role_name`, id)
		if err != nil {
			return fmt.Errorf("failed to get roles: %w", err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("failed to scan roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListWithRoles returns every account with its roles, ordered by username
func (r *AccountRepository) ListWithRoles(ctx context.Context) ([]*models.AccountRoles, error) {
	query := `
		SELECT a.id, a.username,
			COALESCE(array_agg(ar.role_name ORDER BY ar.role_name) FILTER (WHERE ar.role_name IS NOT NULL), '{}')
		FROM accounts a
		LEFT JOIN account_roles ar ON ar.account_id = a.id
		GROUP BY a.id, a.username
		ORDER BY a.username
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts with roles: %w", err)
	}
	defer rows.Close()

	out := []*models.AccountRoles{}
	for rows.Next() {
		var ar models.AccountRoles
		if err := rows.Scan(&ar.ID, &ar.Username, &ar.Roles); err != nil {
			return nil, fmt.Errorf("failed to scan account roles: %w", err)
		}
		out = append(out, &ar)
	}
	return out, rows.Err()
}

// AccountOrder selects the discovery sort key
type AccountOrder int

const (
	OrderLastActive AccountOrder = iota
	OrderCreated
)

// AccountFilter narrows the discovery feed. Zero values mean no restriction,
// except IDs which restricts to the listed accounts whenever RestrictIDs is set.
type AccountFilter struct {
	ExcludeID   string
	Gender      string
	RestrictIDs bool
	IDs         []string
	BornFrom    time.Time
	BornTo      time.Time
	Order       AccountOrder
}

func (f AccountFilter) predicates() *predicates {
	p := &predicates{}
	if f.ExcludeID != "" {
		p.add("a.id <> ?", f.ExcludeID)
	}
	if f.Gender != "" {
		p.add("a.gender = ?", f.Gender)
	}
	if f.RestrictIDs {
		ids := f.IDs
		if ids == nil {
			ids = []string{}
		}
		p.add("a.id = ANY(?)", ids)
	}
	if !f.BornFrom.IsZero() {
		p.add("a.date_of_birth >= ?", f.BornFrom)
	}
	if !f.BornTo.IsZero() {
		p.add("a.date_of_birth <= ?", f.BornTo)
	}
	return p
}

func (f AccountFilter) orderBy() string {
	if f.Order == OrderCreated {
		return " ORDER BY a.created DESC, a.id"
	}
	return " ORDER BY a.last_active DESC, a.id"
}

// buildDiscoveryCount returns the count query for a filter
func buildDiscoveryCount(f AccountFilter) (string, []any) {
	p := f.predicates()
	return `SELECT COUNT(*) FROM accounts a` + p.where(), p.args
}

// buildDiscoveryPage returns the page query for a filter
func buildDiscoveryPage(f AccountFilter, limit, offset int) (string, []any) {
	p := f.predicates()
	query := `SELECT a.id, a.username, a.gender, a.date_of_birth, a.known_as, a.created, a.last_active,
		a.city, a.country, mp.url
	FROM accounts a` + fmt.Sprintf(mainPhotoJoin, "a", "mp") + p.where() + f.orderBy()
	query += " LIMIT " + p.arg(limit) + " OFFSET " + p.arg(offset)
	return query, p.args
}

// Discover returns a page source over the accounts matching the filter
func (r *AccountRepository) Discover(f AccountFilter) pagination.Source[*models.Account] {
	return &discoverySource{db: r.db, filter: f}
}

type discoverySource struct {
	db     DB
	filter AccountFilter
}

func (s *discoverySource) Count(ctx context.Context) (int, error) {
	query, args := buildDiscoveryCount(s.filter)
	var total int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return total, nil
}

func (s *discoverySource) Fetch(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query, args := buildDiscoveryPage(s.filter, limit, offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		var a models.Account
		var photoURL *string
		err := rows.Scan(&a.ID, &a.Username, &a.Gender, &a.DateOfBirth, &a.KnownAs,
			&a.Created, &a.LastActive, &a.City, &a.Country, &photoURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		if photoURL != nil {
			a.Photos = []*models.Photo{{AccountID: a.ID, URL: *photoURL, IsMain: true, IsApproved: true}}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
