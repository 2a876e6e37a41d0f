package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/models"
)

// ProfileUpdate holds the editable profile fields
type ProfileUpdate struct {
	Introduction string `json:"introduction"`
	LookingFor   string `json:"lookingFor"`
	Interests    string `json:"interests"`
	City         string `json:"city"`
	Country      string `json:"country"`
}

// AccountService handles account profiles and activity
type AccountService struct {
	accounts AccountStore
	photos   PhotoStore
	now      func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(accounts AccountStore, photos PhotoStore) *AccountService {
	return &AccountService{
		accounts: accounts,
		photos:   photos,
		now:      time.Now,
	}
}

// Get returns the profile of id. Unapproved photos are included only
// for the owner.
func (s *AccountService) Get(ctx context.Context, claims auth.Claims, id string) (*models.AccountDetail, error) {
	if err := auth.Authorize(claims, ""); err != nil {
		return nil, err
	}

	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	own := claims.Subject == id
	photos, err := s.photos.ListByAccount(ctx, id, own)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	a.Photos = photos

	summary := a.Summary(s.now())
	summary.PhotoURL = approvedMainURL(photos)
	return &models.AccountDetail{
		AccountSummary: summary,
		Introduction:   a.Introduction,
		LookingFor:     a.LookingFor,
		Interests:      a.Interests,
		Photos:         a.Photos,
	}, nil
}

// approvedMainURL ignores unapproved photos the owner can see
func approvedMainURL(photos []*models.Photo) string {
	for _, p := range photos {
		if p.IsMain && p.IsApproved {
			return p.URL
		}
	}
	return ""
}

// UpdateProfile saves the owner's profile fields
func (s *AccountService) UpdateProfile(ctx context.Context, claims auth.Claims, id string, u ProfileUpdate) error {
	if err := auth.Authorize(claims, id); err != nil {
		return err
	}

	a := &models.Account{
		ID:           id,
		Introduction: strings.TrimSpace(u.Introduction),
		LookingFor:   strings.TrimSpace(u.LookingFor),
		Interests:    strings.TrimSpace(u.Interests),
		City:         strings.TrimSpace(u.City),
		Country:      strings.TrimSpace(u.Country),
	}
	if err := s.accounts.UpdateProfile(ctx, a); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePushToken registers the owner's APNs device token. An empty token clears it.
func (s *AccountService) UpdatePushToken(ctx context.Context, claims auth.Claims, id, deviceToken string) error {
	if err := auth.Authorize(claims, id); err != nil {
		return err
	}

	var tok *string
	if t := strings.TrimSpace(deviceToken); t != "" {
		tok = &t
	}
	if err := s.accounts.UpdatePushToken(ctx, id, tok); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// TouchLastActive stamps the account as active now
func (s *AccountService) TouchLastActive(ctx context.Context, id string) error {
	return s.accounts.TouchLastActive(ctx, id, s.now())
}
