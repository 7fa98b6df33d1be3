package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"kudipos/backend/internal/config"
	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store"
	"kudipos/backend/internal/store/memory"
)

func TestValidateConfig(t *testing.T) {
	cfg := config.Config{AuthSecret: "short"}
	if err := validateConfig(cfg); err == nil {
		t.Fatal("short secret accepted")
	}
	cfg.AuthSecret = strings.Repeat("s", 32)
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestSeedUsers(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "bootstrap-admin-pass")
	t.Setenv("SEED_CASHIER_PASSWORD", "")

	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := memory.New()
	ctx := context.Background()

	seedUsers(ctx, repo, log)

	admin, err := repo.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("admin not seeded: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("admin role = %q", admin.Role)
	}
	if _, err := repo.GetUserByUsername(ctx, "cashier"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cashier seeded without a password: %v", err)
	}

	// Seeding again must not duplicate or overwrite the account.
	seedUsers(ctx, repo, log)
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if users[0].PasswordHash != admin.PasswordHash {
		t.Fatal("reseeding replaced the password hash")
	}
}
