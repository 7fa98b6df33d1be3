package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kudipos/backend/internal/domain"
	"kudipos/backend/internal/store"
)

// ErrInvalidCredentials is returned for unknown users and bad passwords
// alike, so login responses do not reveal which usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenIssuer = "kudipos"

// UserStore is the slice of the Repository the auth layer needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	CreateUser(ctx context.Context, u domain.UserAccount) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

type posClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
}

// AuthManager verifies passwords and issues HS256 bearer tokens.
type AuthManager struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthManager(users UserStore, secret string, tokenTTL time.Duration) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthManager{users: users, secret: []byte(secret), tokenTTL: tokenTTL}
}

func (a *AuthManager) Authenticate(ctx context.Context, username, password string) (domain.UserAccount, error) {
	user, err := a.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Burn a comparison anyway to keep timing flat.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$Cvp7TTt1AcDkUVVNxHxIXelAdiGjCO9wBlGPx9TnhSpVyKxRMqCyW"), []byte(password))
		return domain.UserAccount{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.UserAccount{}, ErrInvalidCredentials
	}
	return user, nil
}

func (a *AuthManager) IssueToken(user domain.UserAccount) (string, error) {
	now := time.Now()
	claims := posClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *AuthManager) ParseToken(raw string) (posClaims, error) {
	var claims posClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return posClaims{}, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Register creates an account with a bcrypt-hashed password.
func (a *AuthManager) Register(ctx context.Context, username, password, role string) (domain.UserAccount, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return a.users.CreateUser(ctx, domain.UserAccount{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
}

// ChangePassword verifies the current password before storing the new hash.
func (a *AuthManager) ChangePassword(ctx context.Context, username, current, next string) error {
	user, err := a.Authenticate(ctx, username, current)
	if err != nil {
		return err
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return a.users.UpdateUserPassword(ctx, user.ID, hash)
}

func (a *AuthManager) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	return a.users.ListUsers(ctx)
}

// HashPassword wraps bcrypt for callers that create accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
