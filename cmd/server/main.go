package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/seat-inventory/internal/config"
	"github.com/cx-tal-miterani/seat-inventory/internal/handlers"
	"github.com/cx-tal-miterani/seat-inventory/internal/identity"
	"github.com/cx-tal-miterani/seat-inventory/internal/logging"
	"github.com/cx-tal-miterani/seat-inventory/internal/observability"
	"github.com/cx-tal-miterani/seat-inventory/internal/ratelimit"
	"github.com/cx-tal-miterani/seat-inventory/internal/repository"
	"github.com/cx-tal-miterani/seat-inventory/internal/router"
	"github.com/cx-tal-miterani/seat-inventory/internal/service"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		AuthHeader:     cfg.OtelAuthHeader,
		Insecure:       cfg.OtelInsecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	reservations := service.NewReservationService(repo, clock.New(), logger, service.Options{
		MinDepartureLeadTime: cfg.MinDepartureLeadTime,
		BookingCutoffWindow:  cfg.BookingCutoffWindow,
	})

	if cfg.TemporalHost != "" {
		stopReconciler, err := startReconciler(ctx, cfg, reservations, logger)
		if err != nil {
			return err
		}
		defer stopReconciler()
	} else {
		logger.Info("Temporal host not configured, inventory reconciliation disabled")
	}

	var limiter *ratelimit.CallerLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = ratelimit.NewCallerLimiter(ratelimit.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
			MaxCallers:        cfg.RateLimitMaxCallers,
		})
		for caller, o := range cfg.RateLimitOverrides {
			limiter.SetCallerLimit(caller, o.RPS, o.Burst)
		}
	}

	h := handlers.NewHandler(reservations, logger)
	r := router.SetupRouter(h, router.Options{
		Identity:       identity.NewHeaderProvider(cfg.IdentityHeader),
		IdentityHeader: cfg.IdentityHeader,
		Limiter:        limiter,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		logger.Info("Connecting to database...")
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		repo := repository.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("Connected to database")
		return repo, nil

	case config.BackendRedis:
		logger.Info("Connecting to Redis...", zap.String("host", cfg.Redis.Host), zap.String("port", cfg.Redis.Port))
		repo, err := repository.NewRedisRepository(repository.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Redis")
		return repo, nil

	default:
		logger.Warn("Using in-memory store, inventory is lost on restart")
		return repository.NewMemoryRepository(), nil
	}
}
