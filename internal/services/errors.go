package services

import (
	"errors"

	"dating-backend/internal/auth"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = auth.ErrUnauthorized
	ErrForbidden          = auth.ErrForbidden
	ErrDuplicateLike      = errors.New("you already like this user")
	ErrCannotLikeSelf     = errors.New("you cannot like yourself")
	ErrMainPhoto          = errors.New("you cannot delete your main photo")
	ErrAlreadyMain        = errors.New("this is already the main photo")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUnknownRole        = errors.New("unknown role")
)

// ValidationError reports a malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
