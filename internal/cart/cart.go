// Package cart holds transient per-session carts and the hold index used to
// park and resume them. Carts never touch the Repository; checkout reads the
// arena and writes the sale.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"kudipos/backend/internal/domain"
)

// ErrEmptyCart is returned when holding or checking out a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrHoldNotFound is returned when a hold identifier is unknown or expired.
var ErrHoldNotFound = errors.New("held cart not found")

// DefaultHoldTTL bounds how long a parked cart survives before it is dropped.
const DefaultHoldTTL = 24 * time.Hour

// Arena stores active carts keyed by session id and held carts keyed by a
// short hold id. Holds expire after the configured TTL.
type Arena interface {
	// Get returns the active cart for the session, empty if none exists.
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	// Save replaces the active cart for cart.SessionID.
	Save(ctx context.Context, cart domain.Cart) error
	// Clear drops the active cart.
	Clear(ctx context.Context, sessionID string) error
	// Hold parks the active cart under a new hold id and leaves the
	// session with an empty cart. Fails with ErrEmptyCart.
	Hold(ctx context.Context, sessionID string) (domain.HeldCart, error)
	// Resume moves the held cart back as the session's active cart,
	// consuming the hold. The previous active cart is discarded. Fails
	// with ErrHoldNotFound for unknown or expired holds.
	Resume(ctx context.Context, sessionID, holdID string) (domain.Cart, error)
	// ListHolds returns the session's unexpired holds, newest first.
	ListHolds(ctx context.Context, sessionID string) ([]domain.HeldCart, error)
}

// newHoldID returns a short identifier like the ones printed on hold slips.
func newHoldID() string {
	return uuid.NewString()[:8]
}
