package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kudipos/backend/internal/domain"
)

func testCart(sessionID string) domain.Cart {
	price := decimal.NewFromFloat(2.50)
	return domain.Cart{
		SessionID: sessionID,
		Items: []domain.CartItem{
			{ProductID: 1, Name: "Water", Price: price, Quantity: 2, Total: price.Mul(decimal.NewFromInt(2))},
		},
	}
}

func TestMemoryArenaHoldResume(t *testing.T) {
	ctx := context.Background()
	arena := NewMemoryArena(time.Hour)

	if _, err := arena.Hold(ctx, "sess-1"); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("hold empty: got %v", err)
	}

	if err := arena.Save(ctx, testCart("sess-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	held, err := arena.Hold(ctx, "sess-1")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if c, _ := arena.Get(ctx, "sess-1"); len(c.Items) != 0 {
		t.Fatal("active cart survived hold")
	}

	// A hold belongs to the session that parked it.
	if _, err := arena.Resume(ctx, "sess-2", held.HoldID); !errors.Is(err, ErrHoldNotFound) {
		t.Fatalf("foreign resume: got %v", err)
	}

	c, err := arena.Resume(ctx, "sess-1", held.HoldID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 2 {
		t.Fatalf("resumed cart = %+v", c.Items)
	}
	if _, err := arena.Resume(ctx, "sess-1", held.HoldID); !errors.Is(err, ErrHoldNotFound) {
		t.Fatalf("hold not consumed: got %v", err)
	}
}

func TestMemoryArenaHoldExpiry(t *testing.T) {
	ctx := context.Background()
	arena := NewMemoryArena(time.Hour)
	current := time.Now()
	arena.now = func() time.Time { return current }

	if err := arena.Save(ctx, testCart("sess-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	held, err := arena.Hold(ctx, "sess-1")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	current = current.Add(30 * time.Minute)
	if holds, _ := arena.ListHolds(ctx, "sess-1"); len(holds) != 1 {
		t.Fatalf("holds before expiry = %d, want 1", len(holds))
	}

	current = current.Add(31 * time.Minute)
	if holds, _ := arena.ListHolds(ctx, "sess-1"); len(holds) != 0 {
		t.Fatalf("holds after expiry = %d, want 0", len(holds))
	}
	if _, err := arena.Resume(ctx, "sess-1", held.HoldID); !errors.Is(err, ErrHoldNotFound) {
		t.Fatalf("resume expired: got %v", err)
	}
}

func TestMemoryArenaResumeReplacesActiveCart(t *testing.T) {
	ctx := context.Background()
	arena := NewMemoryArena(time.Hour)

	if err := arena.Save(ctx, testCart("sess-1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	held, err := arena.Hold(ctx, "sess-1")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	other := testCart("sess-1")
	other.Items[0].ProductID = 99
	if err := arena.Save(ctx, other); err != nil {
		t.Fatalf("save second cart: %v", err)
	}

	c, err := arena.Resume(ctx, "sess-1", held.HoldID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if c.Items[0].ProductID != 1 {
		t.Fatalf("resume did not replace the active cart: %+v", c.Items)
	}
}
