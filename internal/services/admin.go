package services

import (
	"context"
	"fmt"
	"strings"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
)

// AdminService manages role assignments
type AdminService struct {
	accounts AccountStore
}

// NewAdminService creates a new admin service
func NewAdminService(accounts AccountStore) *AdminService {
	return &AdminService{accounts: accounts}
}

// UsersWithRoles lists every account with its roles, ordered by username
func (s *AdminService) UsersWithRoles(ctx context.Context, claims auth.Claims) ([]*models.AccountRoles, error) {
	if err := auth.RequireRoles(claims, auth.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.accounts.ListWithRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// EditRoles replaces the roles of username with roleNames and returns the new set
func (s *AdminService) EditRoles(ctx context.Context, claims auth.Claims, username string, roleNames []string) ([]string, error) {
	if err := auth.RequireRoles(claims, auth.RoleAdmin); err != nil {
		return nil, err
	}

	roles := make([]auth.Role, 0, len(roleNames))
	for _, name := range roleNames {
		r, ok := auth.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
		roles = append(roles, r)
	}

	a, err := s.accounts.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	updated, err := s.accounts.ReplaceRoles(ctx, a.ID, auth.NewRoleSet(roles...).Names())
	if err != nil {
		return nil, fmt.Errorf("failed to edit roles: %w", err)
	}
	return updated, nil
}
