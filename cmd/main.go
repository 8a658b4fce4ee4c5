package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusflow/internal/analytics"
	"campusflow/internal/api"
	"campusflow/internal/attendance"
	"campusflow/internal/audit"
	"campusflow/internal/bootstrap"
	"campusflow/internal/config"
	"campusflow/internal/event"
	"campusflow/internal/identity"
	"campusflow/internal/logger"
	"campusflow/internal/notifications"
	"campusflow/internal/ratelimit"
	"campusflow/internal/recommendation"
	"campusflow/internal/registration"
	"campusflow/internal/storage"
	"campusflow/internal/telemetry"
	"campusflow/internal/user"
	"campusflow/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "campusflow:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Println("Received signal:", sig)
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
		}
	}()

	// Set up logger
	log := logger.New(*cfg)
	slogger := log.Logger

	db, err := bootstrap.OpenStore(ctx, cfg.Database, slogger)
	if err != nil {
		slogger.Error("Failed to initialize database", "error", err)
		return err
	}
	defer db.Close()

	var limiter *ratelimit.RateLimiter
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slogger.Warn("Redis unavailable, per-user rate limits disabled", "error", err)
		} else {
			limiter = ratelimit.NewRateLimiter(redisClient)
		}
	}

	var limiterStorage fiber.Storage
	if cfg.Database.Driver == config.DatabaseDriverPostgres {
		pgStorage := postgres.New(postgres.Config{
			ConnectionURI: cfg.Database.URL(),
			Table:         "fiber_limiter",
			Reset:         false,
		})
		defer pgStorage.Close()
		limiterStorage = pgStorage
	}

	posters, err := storage.NewFactory(cfg.Storage).CreateStorage(ctx)
	if err != nil {
		slogger.Error("Failed to initialize poster storage", "error", err)
		return err
	}
	var posterDir string
	if local, ok := posters.(*storage.LocalStorage); ok {
		posterDir = local.BasePath()
	}

	auditor := audit.NewAuditor(slogger, db)
	notifier := notifications.NewManager(slogger, db)
	v := validator.New()
	eventManager := event.NewManager(slogger, db, &auditor, v, posters, cfg.Storage.MaxPosterSize)
	registrationManager := registration.NewManager(slogger, db, &auditor, &notifier, tel, registration.Options{
		StrictCapacity: cfg.Registration.StrictCapacity,
	})
	attendanceManager := attendance.NewManager(slogger, db, &auditor, &notifier, tel)
	recommender := recommendation.NewManager(slogger, db)
	analyticsManager := analytics.NewManager(slogger, db)
	userManager := user.NewManager(slogger, db)

	apiHandler := api.NewAPIHandler(slogger, &eventManager, &registrationManager, &attendanceManager, &recommender, &analyticsManager, &userManager, &notifier)

	app := api.NewRouter(api.RouterParams{
		Config:         cfg,
		Logger:         slogger,
		Verifier:       identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Handler:        &apiHandler,
		Health:         api.NewHealthHandler(slogger, db, cfg.Telemetry.ServiceVersion),
		RateLimiter:    limiter,
		LimiterStorage: limiterStorage,
		PosterDir:      posterDir,
	})

	serverErr := make(chan error, 1)
	go func() {
		slogger.Info("Starting server", "addr", cfg.Server.Addr(), "environment", cfg.Server.Environment)
		serverErr <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slogger.Error("Server stopped", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slogger.Error("Graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
