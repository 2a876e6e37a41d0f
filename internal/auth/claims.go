// Package auth holds the signed identity claims and the checks made against them.
package auth

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the resource owner
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks every allowed role
	ErrForbidden = errors.New("forbidden")
)

// Claims is the authenticated identity of one request.
// It is built once from the token and passed by value.
type Claims struct {
	Subject  string
	Username string
	Roles    RoleSet
}

// Authorize checks that the caller owns the resource.
// An empty ownerID only requires an authenticated subject.
func Authorize(c Claims, ownerID string) error {
	if c.Subject == "" {
		return ErrUnauthorized
	}
	if ownerID != "" && c.Subject != ownerID {
		return ErrUnauthorized
	}
	return nil
}

// RoleMatch reports whether the caller holds at least one allowed role
func RoleMatch(c Claims, allowed ...Role) bool {
	return c.Roles.Intersects(allowed...)
}

// RequireRoles returns ErrForbidden unless RoleMatch holds
func RequireRoles(c Claims, allowed ...Role) error {
	if c.Subject == "" {
		return ErrUnauthorized
	}
	if !RoleMatch(c, allowed...) {
		return ErrForbidden
	}
	return nil
}
