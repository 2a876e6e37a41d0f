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
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 4
	maxPasswordLength = 72
)

// RegisterInput is the sign-up payload
type RegisterInput struct {
	Username    string    `json:"username"`
	Password    string    `json:"password"`
	Gender      string    `json:"gender"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	KnownAs     string    `json:"knownAs"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
}

// LoginResult is returned after a successful login
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	User      models.AccountSummary `json:"user"`
}

// AuthService registers accounts and issues access tokens
type AuthService struct {
	accounts AccountStore
	tokens   *auth.TokenManager
	cost     int
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (in RegisterInput) validate() error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return invalid("username", "required")
	case len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength:
		return invalid("password", fmt.Sprintf("must be between %d and %d characters", minPasswordLength, maxPasswordLength))
	case strings.TrimSpace(in.Gender) == "":
		return invalid("gender", "required")
	case in.DateOfBirth.IsZero():
		return invalid("dateOfBirth", "required")
	case strings.TrimSpace(in.KnownAs) == "":
		return invalid("knownAs", "required")
	}
	return nil
}

// Register creates an account with the Member role
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	a := &models.Account{
		ID:           uuid.New().String(),
		Username:     strings.ToLower(strings.TrimSpace(in.Username)),
		PasswordHash: string(hash),
		Gender:       strings.ToLower(strings.TrimSpace(in.Gender)),
		DateOfBirth:  in.DateOfBirth,
		KnownAs:      strings.TrimSpace(in.KnownAs),
		Created:      now,
		LastActive:   now,
		City:         strings.TrimSpace(in.City),
		Country:      strings.TrimSpace(in.Country),
	}

	if err := s.accounts.Create(ctx, a, []string{string(auth.RoleMember)}); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// Login checks the credentials and issues a token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	roles, err := s.accounts.GetRoles(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(a.ID, a.Username, auth.ParseRoleSet(roles))
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      a.Summary(s.now()),
	}, nil
}

// ParseToken validates an access token
func (s *AuthService) ParseToken(token string) (auth.Claims, error) {
	return s.tokens.Parse(token)
}
