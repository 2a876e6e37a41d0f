package middleware

import (
	"context"
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// ActivityStamper records that an account made a request
type ActivityStamper interface {
	TouchLastActive(ctx context.Context, id string) error
}

// TrackActivity stamps the caller's lastActive after every authorized request,
// whatever its outcome. Rejected requests (401, 403, 429) are not stamped.
// A failed stamp is logged and never changes the response.
func TrackActivity(stamper ActivityStamper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if rejected(statusOf(ww)) {
				return
			}
			userID := GetUserID(r.Context())
			if userID == "" {
				return
			}
			if err := stamper.TouchLastActive(context.WithoutCancel(r.Context()), userID); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to update last active")
			}
		})
	}
}

// statusOf treats an unwritten response as 200
func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

func rejected(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
