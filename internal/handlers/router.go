package handlers

import (
	"net/http"

	"dating-backend/internal/auth"
	"dating-backend/internal/metrics"
	"dating-backend/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterDeps are the handlers and middleware collaborators of the API
type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Messages  *MessageHandler
	Photos    *PhotoHandler
	Admin     *AdminHandler
	WebSocket *WebSocketHandler

	Tokens   middleware.TokenParser
	Activity middleware.ActivityStamper
	// RateLimiter may be nil to disable limiting
	RateLimiter *middleware.RateLimiter

	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	AllowedOrigins []string
}

// NewRouter builds the HTTP routes
func NewRouter(d RouterDeps) http.Handler {
	rec := d.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics(rec))
	r.Use(middleware.CORS(d.AllowedOrigins))

	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}
	if d.WebSocket != nil {
		r.Get("/ws", d.WebSocket.HandleWebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Tokens))
			if d.RateLimiter != nil {
				r.Use(d.RateLimiter.Middleware)
			}
			if d.Activity != nil {
				r.Use(middleware.TrackActivity(d.Activity))
			}

			r.Get("/users", d.Users.Discover)
			r.Route("/users/{userId}", func(r chi.Router) {
				r.Get("/", d.Users.GetUser)
				r.Put("/", d.Users.UpdateUser)
				r.Put("/push-token", d.Users.UpdatePushToken)
				r.Post("/like/{recipientId}", d.Users.Like)

				r.Get("/messages", d.Messages.Mailbox)
				r.Post("/messages", d.Messages.Send)
				r.Get("/messages/thread/{otherId}", d.Messages.Thread)
				r.Get("/messages/{id}", d.Messages.GetMessage)
				r.Post("/messages/{id}", d.Messages.Delete)
				r.Post("/messages/{id}/read", d.Messages.MarkRead)

				r.Post("/photos", d.Photos.RequestUpload)
				r.Get("/photos/{id}", d.Photos.GetPhoto)
				r.Post("/photos/{id}/setMain", d.Photos.SetMain)
				r.Delete("/photos/{id}", d.Photos.DeletePhoto)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(auth.RoleAdmin))
					r.Get("/usersWithRoles", d.Admin.UsersWithRoles)
					r.Post("/editRoles/{userName}", d.Admin.EditRoles)
				})
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleModerator))
					r.Get("/photosForModeration", d.Admin.PhotosForModeration)
					r.Post("/approvePhoto/{photoId}", d.Admin.ApprovePhoto)
					r.Post("/rejectPhoto/{photoId}", d.Admin.RejectPhoto)
				})
			})
		})
	})

	return r
}
