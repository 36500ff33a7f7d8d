package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/user-manager/internal/auth"
	"github.com/hongminglow/user-manager/internal/config"
	"github.com/hongminglow/user-manager/internal/logging"
	"github.com/hongminglow/user-manager/internal/observability"
	"github.com/hongminglow/user-manager/internal/server"
	"github.com/hongminglow/user-manager/internal/storage"
	"github.com/hongminglow/user-manager/internal/storage/memory"
	postgres "github.com/hongminglow/user-manager/internal/storage/postgres"
	"github.com/hongminglow/user-manager/internal/storage/redisstore"
	"github.com/hongminglow/user-manager/internal/users"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found; relying on existing environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s store: %w", cfg.StoreDriver, err)
	}
	defer closeStore()

	if cfg.SeedUsers {
		seeded, err := users.NewService(store).SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if seeded > 0 {
			logger.Info("seeded demo users", slog.Int("count", seeded))
		}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL())
	srv := server.New(cfg, server.Deps{
		Store:   store,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("user-manager listening", slog.String("addr", cfg.HTTPAddress()), slog.String("store", cfg.StoreDriver))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (storage.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := postgres.NewUserStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverRedis:
		s, err := redisstore.NewUserStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return memory.NewUserStore(), func() {}, nil
	}
}
