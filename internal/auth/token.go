package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

// tokenClaims is the JWT body: nameid, unique_name and role
type tokenClaims struct {
	NameID     string   `json:"nameid"`
	UniqueName string   `json:"unique_name"`
	Role       []string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and parses HS512 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager
func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a token for the given identity
func (m *TokenManager) Issue(subject, username string, roles RoleSet) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := tokenClaims{
		NameID:     subject,
		UniqueName: username,
		Role:       roles.Names(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns its claims
func (m *TokenManager) Parse(tokenString string) (Claims, error) {
	var tc tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &tc, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if tc.NameID == "" {
		return Claims{}, errors.New("nameid not found in token")
	}

	return Claims{
		Subject:  tc.NameID,
		Username: tc.UniqueName,
		Roles:    ParseRoleSet(tc.Role),
	}, nil
}
