package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"kudipos/backend/internal/domain"
)

const (
	cartKeyPrefix  = "pos:cart:"
	holdKeyPrefix  = "pos:hold:"
	holdIdxPrefix  = "pos:holds:"
	lockKeyPrefix  = "pos:cartlock:"
	activeCartTTL  = 7 * 24 * time.Hour
	lockHoldWindow = 3 * time.Second
)

// RedisArena stores carts in redis so terminals behind multiple server
// instances share hold state. Hold and Resume take a per-session lock because
// they read-modify-write across the cart key and the hold index.
type RedisArena struct {
	client  *redis.Client
	locker  *redislock.Client
	holdTTL time.Duration
}

func NewRedisArena(client *redis.Client, holdTTL time.Duration) *RedisArena {
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &RedisArena{
		client:  client,
		locker:  redislock.New(client),
		holdTTL: holdTTL,
	}
}

var _ Arena = (*RedisArena)(nil)

func (a *RedisArena) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	raw, err := a.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{SessionID: sessionID}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	var c domain.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	c.SessionID = sessionID
	return c, nil
}

func (a *RedisArena) Save(ctx context.Context, cart domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := a.client.Set(ctx, cartKeyPrefix+cart.SessionID, raw, activeCartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (a *RedisArena) Clear(ctx context.Context, sessionID string) error {
	if err := a.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (a *RedisArena) Hold(ctx context.Context, sessionID string) (domain.HeldCart, error) {
	lock, err := a.lockSession(ctx, sessionID)
	if err != nil {
		return domain.HeldCart{}, err
	}
	defer lock.Release(ctx)

	c, err := a.Get(ctx, sessionID)
	if err != nil {
		return domain.HeldCart{}, err
	}
	if len(c.Items) == 0 {
		return domain.HeldCart{}, ErrEmptyCart
	}

	now := time.Now().UTC()
	held := domain.HeldCart{
		HoldID:    newHoldID(),
		SessionID: sessionID,
		Cart:      c,
		HeldAt:    now,
		ExpiresAt: now.Add(a.holdTTL),
	}
	raw, err := json.Marshal(held)
	if err != nil {
		return domain.HeldCart{}, fmt.Errorf("encode held cart: %w", err)
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, holdKeyPrefix+held.HoldID, raw, a.holdTTL)
	pipe.SAdd(ctx, holdIdxPrefix+sessionID, held.HoldID)
	pipe.Expire(ctx, holdIdxPrefix+sessionID, a.holdTTL)
	pipe.Del(ctx, cartKeyPrefix+sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.HeldCart{}, fmt.Errorf("hold cart: %w", err)
	}
	return held, nil
}

func (a *RedisArena) Resume(ctx context.Context, sessionID, holdID string) (domain.Cart, error) {
	lock, err := a.lockSession(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	defer lock.Release(ctx)

	raw, err := a.client.Get(ctx, holdKeyPrefix+holdID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, ErrHoldNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get held cart: %w", err)
	}
	var held domain.HeldCart
	if err := json.Unmarshal(raw, &held); err != nil {
		return domain.Cart{}, fmt.Errorf("decode held cart: %w", err)
	}
	if held.SessionID != sessionID {
		return domain.Cart{}, ErrHoldNotFound
	}

	c := held.Cart
	c.SessionID = sessionID
	c.UpdatedAt = time.Now().UTC()
	encoded, err := json.Marshal(c)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("encode cart: %w", err)
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, cartKeyPrefix+sessionID, encoded, activeCartTTL)
	pipe.Del(ctx, holdKeyPrefix+holdID)
	pipe.SRem(ctx, holdIdxPrefix+sessionID, holdID)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Cart{}, fmt.Errorf("resume cart: %w", err)
	}
	return c, nil
}

func (a *RedisArena) ListHolds(ctx context.Context, sessionID string) ([]domain.HeldCart, error) {
	ids, err := a.client.SMembers(ctx, holdIdxPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	var out []domain.HeldCart
	for _, id := range ids {
		raw, err := a.client.Get(ctx, holdKeyPrefix+id).Bytes()
		if errors.Is(err, redis.Nil) {
			// Hold expired under its own TTL; drop the stale index entry.
			a.client.SRem(ctx, holdIdxPrefix+sessionID, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get held cart: %w", err)
		}
		var held domain.HeldCart
		if err := json.Unmarshal(raw, &held); err != nil {
			return nil, fmt.Errorf("decode held cart: %w", err)
		}
		out = append(out, held)
	}
	slices.SortFunc(out, func(x, y domain.HeldCart) int {
		return y.HeldAt.Compare(x.HeldAt)
	})
	return out, nil
}

func (a *RedisArena) lockSession(ctx context.Context, sessionID string) (*redislock.Lock, error) {
	lock, err := a.locker.Obtain(ctx, lockKeyPrefix+sessionID, lockHoldWindow, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 20),
	})
	if err != nil {
		return nil, fmt.Errorf("lock session cart: %w", err)
	}
	return lock, nil
}
