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

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"kudipos/backend/internal/cart"
	"kudipos/backend/internal/config"
	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/httpapi"
	"kudipos/backend/internal/report"
	"kudipos/backend/internal/service"
	"kudipos/backend/internal/store"
	"kudipos/backend/internal/store/memory"
	"kudipos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	if err := validateConfig(cfg); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()
	var closers []func() error

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect postgres")
		}
		closers = append(closers, pg.Close)
		repo = pg
		seedUsers(ctx, repo, log)
		log.Info("using postgres repository")
	} else {
		repo = memory.NewSeeded()
		log.Warn("DATABASE_URL not set, using in-memory repository")
	}

	var carts cart.Arena
	var reports report.Cache = report.NoopCache{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		closers = append(closers, client.Close)
		carts = cart.NewRedisArena(client, cfg.HoldTTL)
		reports = report.NewRedisCache(client, cfg.ReportCacheTTL)
		log.Info("using redis cart arena")
	} else {
		carts = cart.NewMemoryArena(cfg.HoldTTL)
		log.Info("using in-memory cart arena")
	}

	svc := service.New(repo, carts, reports, log)
	auth := httpapi.NewAuthManager(repo, cfg.AuthSecret, cfg.TokenTTL)
	api := httpapi.New(svc, auth, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close resource")
		}
	}
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// seedUsers creates the bootstrap accounts when they are missing, so a fresh
// database is reachable through the API. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; accounts without a password
// are skipped.
func seedUsers(ctx context.Context, repo store.Repository, log *logrus.Logger) {
	seed := func(username, role, envKey string) {
		password := os.Getenv(envKey)
		if password == "" {
			return
		}
		_, err := repo.GetUserByUsername(ctx, username)
		if err == nil {
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).WithField("user", username).Warn("seed user lookup failed")
			return
		}
		hash, err := httpapi.HashPassword(password)
		if err != nil {
			log.WithError(err).WithField("user", username).Warn("seed user hash failed")
			return
		}
		if _, err := repo.CreateUser(ctx, domain.UserAccount{Username: username, PasswordHash: hash, Role: role}); err != nil {
			log.WithError(err).WithField("user", username).Warn("seed user create failed")
			return
		}
		log.WithField("user", username).Info("seeded user")
	}
	seed("admin", domain.RoleAdmin, "SEED_ADMIN_PASSWORD")
	seed("cashier", domain.RoleCashier, "SEED_CASHIER_PASSWORD")
}

func validateConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters")
	}
	return nil
}
