package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/config"
	"dating-backend/internal/database"
	"dating-backend/internal/handlers"
	"dating-backend/internal/metrics"
	"dating-backend/internal/middleware"
	"dating-backend/internal/repository"
	"dating-backend/internal/services"
	"dating-backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func Run() {
	// Load configuration
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(cfg.Database.MigrateURL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Connect to database
	db, err := database.Connect(context.Background(), cfg.Database.DSN(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	media, err := storage.NewS3Storage(context.Background(), storage.Options{
		Region:        cfg.AWS.Region,
		Bucket:        cfg.AWS.S3Bucket,
		AccessKey:     cfg.AWS.AccessKey,
		SecretKey:     cfg.AWS.SecretKey,
		Endpoint:      cfg.AWS.Endpoint,
		PublicBaseURL: cfg.AWS.PublicBaseURL,
		UploadExpiry:  cfg.AWS.UploadExpiry,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media storage")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	wsHub := services.NewWSHub()
	var push services.PushSender
	if cfg.APNs.Enabled() {
		pusher, err := services.NewAPNsPusher(cfg.APNs.KeyPath, cfg.APNs.KeyID, cfg.APNs.TeamID, cfg.APNs.Topic, cfg.APNs.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create APNs client")
		}
		push = pusher
		log.Info().Bool("production", cfg.APNs.Production).Msg("Push notifications enabled")
	}
	notifier := services.NewRealtimeNotifier(wsHub, push, accountRepo)

	// Initialize services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	authService := services.NewAuthService(accountRepo, tokens)
	accountService := services.NewAccountService(accountRepo, photoRepo)
	likeService := services.NewLikeService(likeRepo, accountRepo, notifier, recorder)
	discoveryService := services.NewDiscoveryService(accountRepo, likeService, recorder)
	messageService := services.NewMessageService(messageRepo, accountRepo, notifier, recorder)
	photoService := services.NewPhotoService(photoRepo, media)
	adminService := services.NewAdminService(accountRepo)

	var limiter *middleware.RateLimiter
	if !cfg.RateLimit.Disabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
		defer limiter.Stop()
	}

	// Initialize handlers
	pages := handlers.PageConfig{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUserHandler(discoveryService, accountService, likeService, pages),
		Messages:       handlers.NewMessageHandler(messageService, pages),
		Photos:         handlers.NewPhotoHandler(photoService),
		Admin:          handlers.NewAdminHandler(adminService, photoService),
		WebSocket:      handlers.NewWebSocketHandler(wsHub, authService, cfg.CORS.AllowedOrigins),
		Tokens:         authService,
		Activity:       accountService,
		RateLimiter:    limiter,
		Metrics:        recorder,
		MetricsHandler: metrics.Handler(registry),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
