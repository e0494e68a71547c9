package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"connectiu-backend/internal/config"
	"connectiu-backend/internal/database"
	"connectiu-backend/internal/handlers"
	"connectiu-backend/internal/push"
	"connectiu-backend/internal/repository"
	"connectiu-backend/internal/services"
	"connectiu-backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run starts the API server, or runs "migrate up|down [steps]" when asked
func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log)

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg.Database, os.Args[2:]); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		return
	}

	if err := serve(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func runMigrate(cfg config.DatabaseConfig, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}

	switch direction {
	case "up":
		return database.Migrate(cfg)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return database.Rollback(cfg, steps)
	default:
		return fmt.Errorf("unknown migrate direction %q (want up or down)", direction)
	}
}

func serve(cfg *config.Config) error {
	ctx := context.Background()

	if !cfg.Database.SkipMigrations {
		if err := database.Migrate(cfg.Database); err != nil {
			return err
		}
	}

	// Connect to database
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	rdb := connectRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to set up storage: %w", err)
	}

	var pusher services.PushNotifier
	apns, err := push.NewAPNsNotifier(cfg.APNs)
	if err != nil {
		return fmt.Errorf("failed to set up push notifications: %w", err)
	}
	if apns != nil {
		pusher = apns
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	eventRepo := repository.NewEventRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Initialize services
	wsHub := services.NewWSHub()
	userService := services.NewUserService(userRepo, postRepo, followRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	postService := services.NewPostService(postRepo)
	commentService := services.NewCommentService(commentRepo, postRepo)
	followService := services.NewFollowService(followRepo, userRepo, wsHub)
	eventService := services.NewEventService(eventRepo)
	chatService := services.NewChatService(chatRepo, userRepo, wsHub, pusher)

	// Initialize handlers
	h := handlers.Handlers{
		Auth:      handlers.NewAuthHandler(userService),
		Users:     handlers.NewUserHandler(userService),
		Posts:     handlers.NewPostHandler(postService),
		Comments:  handlers.NewCommentHandler(commentService),
		Follows:   handlers.NewFollowHandler(followService),
		Events:    handlers.NewEventHandler(eventService),
		Chat:      handlers.NewChatHandler(chatService),
		Upload:    handlers.NewUploadHandler(store, cfg.Storage.MaxUploadMB<<20),
		WebSocket: handlers.NewWebSocketHandler(wsHub, userService),
		Health:    handlers.NewHealthHandler(db),
	}

	routerCfg := handlers.RouterConfig{
		Validator:      userService,
		Redis:          rdb,
		AuthRateLimit:  cfg.Redis.AuthRateLimit,
		AuthRateWindow: cfg.Redis.AuthRateWindow,
		CORSOrigin:     cfg.Server.CORSOrigin,
		TrustProxy:     cfg.Server.TrustProxy,
	}
	if local, ok := store.(*storage.LocalStore); ok {
		routerCfg.UploadDir = local.Dir()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(h, routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable;
// rate limiting is skipped in that case
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		log.Info().Msg("Redis not configured, auth rate limiting disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid Redis URL, auth rate limiting disabled")
		return nil
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unreachable, requests will fail open")
	} else {
		log.Info().Msg("Redis connection established")
	}
	return rdb
}

// setupLogger configures zerolog logger
func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
