package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-posts-backend/internal/config"
	"social-posts-backend/internal/handlers"
	"social-posts-backend/internal/repository"
	"social-posts-backend/internal/services"
	"social-posts-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores bundles the repositories selected by the database driver
type stores struct {
	users  services.UserStore
	posts  services.PostStore
	health handlers.Pinger
	close  func()
}

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Connect to database
	db, err := openStores(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer db.close()

	// Setup file storage
	files, uploadsDir, err := openFileStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to set up file storage")
	}

	// Initialize services
	tokens, err := services.NewTokenService(cfg.JWT.Secret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token service")
	}
	feedHub := services.NewFeedHub()
	userService := services.NewUserService(db.users, files, services.NewPasswordHasher(), tokens, cfg.Server.BaseURL)
	postService := services.NewPostService(db.posts, db.users, files, feedHub)

	// Initialize handlers and routes
	maxBody := cfg.Storage.MaxUploadBytes()
	router := handlers.NewRouter(handlers.RouterConfig{
		Users:       handlers.NewUserHandler(userService, maxBody),
		Posts:       handlers.NewPostHandler(postService, maxBody),
		Feed:        handlers.NewFeedHandler(feedHub, tokens, cfg.Server.CORSOrigins),
		Health:      handlers.NewHealthHandler(db.health),
		Tokens:      tokens,
		CORSOrigins: cfg.Server.CORSOrigins,
		UploadsDir:  uploadsDir,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("base_url", cfg.Server.BaseURL).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked feed connections are not tracked by Shutdown
	feedHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStores(ctx context.Context, cfg *config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			users:  mem.Users(),
			posts:  mem.Posts(),
			health: mem,
			close:  func() {},
		}, nil
	}

	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db),
		health: db,
		close:  db.Close,
	}, nil
}

// openFileStore returns the configured store and, for the local driver, the
// directory to serve statically.
func openFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, string, error) {
	if cfg.Storage.Driver == config.StorageS3 {
		store, err := storage.NewS3Store(ctx, storage.S3Options{
			Region:     cfg.AWS.Region,
			Bucket:     cfg.AWS.S3Bucket,
			AccessKey:  cfg.AWS.AccessKey,
			SecretKey:  cfg.AWS.SecretKey,
			Endpoint:   cfg.AWS.Endpoint,
			PublicBase: cfg.Storage.PublicS3Base,
		})
		if err != nil {
			return nil, "", err
		}
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("Storing uploads in S3")
		return store, "", nil
	}

	store, err := storage.NewLocalStore(cfg.Storage.UploadsDir, cfg.Server.BaseURL)
	if err != nil {
		return nil, "", err
	}
	log.Info().Str("dir", store.Root()).Msg("Storing uploads on disk")
	return store, store.Root(), nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
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
