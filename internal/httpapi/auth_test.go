package httpapi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store/memory"
)

func newTestAuth(t *testing.T) (*AuthManager, domain.UserAccount) {
	t.Helper()
	repo := memory.New()
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := repo.CreateUser(context.Background(), domain.UserAccount{
		Username:     "admin",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewAuthManager(repo, strings.Repeat("s", 32), time.Hour), user
}

func TestAuthenticate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	user, err := auth.Authenticate(ctx, "admin", "correct horse battery staple")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "admin" || user.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := auth.Authenticate(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: got %v", err)
	}
	if _, err := auth.Authenticate(ctx, "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	auth, user := newTestAuth(t)

	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != domain.RoleAdmin || claims.UserID != user.ID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	auth, user := newTestAuth(t)
	other := NewAuthManager(nil, strings.Repeat("x", 32), time.Hour)

	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("token verified under a different secret")
	}
	if _, err := auth.ParseToken(token + "a"); err == nil {
		t.Fatal("tampered token verified")
	}
}
