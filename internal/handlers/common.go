package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dating-backend/internal/auth"
	"dating-backend/internal/middleware"
	"dating-backend/internal/pagination"
	"dating-backend/internal/repository"
	"dating-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// PaginationHeader carries page metadata next to a list body
const PaginationHeader = "Pagination"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, services.ErrDuplicateLike),
		errors.Is(err, services.ErrCannotLikeSelf),
		errors.Is(err, services.ErrMainPhoto),
		errors.Is(err, services.ErrAlreadyMain),
		errors.Is(err, services.ErrUnknownRole):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Internal errors are
// logged and hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("user_id", middleware.GetUserID(r.Context())).
			Str("path", r.URL.Path).
			Msg(msg)
		respondError(w, "Internal server error", status)
		return
	}
	respondError(w, err.Error(), status)
}

// claimsOrReject returns the request claims or writes 401
func claimsOrReject(w http.ResponseWriter, r *http.Request) (auth.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
	}
	return claims, ok
}

func setPaginationHeader(w http.ResponseWriter, meta pagination.Meta) {
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	w.Header().Set(PaginationHeader, string(data))
}

// PageConfig sets the page size used when a request omits or exceeds it
type PageConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (c PageConfig) params(r *http.Request) pagination.Params {
	q := r.URL.Query()
	size := queryInt(q.Get("pageSize"), c.DefaultPageSize)
	return pagination.NewParams(queryInt(q.Get("pageNumber"), 1), size, c.MaxPageSize)
}

func queryInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func queryBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
