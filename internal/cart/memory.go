package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"kudipos/backend/internal/domain"
)

// MemoryArena keeps carts in process memory. Expired holds are swept lazily
// whenever the hold index is touched.
type MemoryArena struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	holds   map[string]domain.HeldCart
	holdTTL time.Duration
	now     func() time.Time
}

func NewMemoryArena(holdTTL time.Duration) *MemoryArena {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &MemoryArena{
		carts:   map[string]domain.Cart{},
		holds:   map[string]domain.HeldCart{},
		holdTTL: holdTTL,
		now:     time.Now,
	}
}

var _ Arena = (*MemoryArena)(nil)

func (a *MemoryArena) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.carts[sessionID]
	if !ok {
		return domain.Cart{SessionID: sessionID}, nil
	}
	c.Items = slices.Clone(c.Items)
	return c, nil
}

func (a *MemoryArena) Save(_ context.Context, cart domain.Cart) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cart.Items = slices.Clone(cart.Items)
	cart.UpdatedAt = a.now().UTC()
	a.carts[cart.SessionID] = cart
	return nil
}

func (a *MemoryArena) Clear(_ context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.carts, sessionID)
	return nil
}

func (a *MemoryArena) Hold(_ context.Context, sessionID string) (domain.HeldCart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweepLocked()

	c, ok := a.carts[sessionID]
	if !ok || len(c.Items) == 0 {
		return domain.HeldCart{}, ErrEmptyCart
	}
	now := a.now().UTC()
	held := domain.HeldCart{
		HoldID:    newHoldID(),
		SessionID: sessionID,
		Cart:      c,
		HeldAt:    now,
		ExpiresAt: now.Add(a.holdTTL),
	}
	held.Cart.Items = slices.Clone(c.Items)
	a.holds[held.HoldID] = held
	delete(a.carts, sessionID)
	return held, nil
}

func (a *MemoryArena) Resume(_ context.Context, sessionID, holdID string) (domain.Cart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweepLocked()

	held, ok := a.holds[holdID]
	if !ok || held.SessionID != sessionID {
		return domain.Cart{}, ErrHoldNotFound
	}
	delete(a.holds, holdID)

	c := held.Cart
	c.SessionID = sessionID
	c.Items = slices.Clone(c.Items)
	c.UpdatedAt = a.now().UTC()
	a.carts[sessionID] = c
	return c, nil
}

func (a *MemoryArena) ListHolds(_ context.Context, sessionID string) ([]domain.HeldCart, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweepLocked()

	var out []domain.HeldCart
	for _, held := range a.holds {
		if held.SessionID != sessionID {
			continue
		}
		held.Cart.Items = slices.Clone(held.Cart.Items)
		out = append(out, held)
	}
	slices.SortFunc(out, func(x, y domain.HeldCart) int {
		return y.HeldAt.Compare(x.HeldAt)
	})
	return out, nil
}

func (a *MemoryArena) sweepLocked() {
	now := a.now()
	for id, held := range a.holds {
		if now.After(held.ExpiresAt) {
			delete(a.holds, id)
		}
	}
}
