package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// SessionCache is the gateway's stand-in for browser-local storage: the
// session token and the cart snapshot, keyed by tenant code. Convenience
// caching only — losing a key degrades UX, never corrupts backend state.
type SessionCache struct {
	RDB    *redis.Client
	Tenant string
}

func (c *SessionCache) SaveCart(ctx context.Context, o pos.Order) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(KeyCartSnapshot, c.Tenant)
	return c.RDB.Set(ctx, key, b, TTLCartSnapshot).Err()
}

func (c *SessionCache) LoadCart(ctx context.Context) (pos.Order, bool, error) {
	key := fmt.Sprintf(KeyCartSnapshot, c.Tenant)
	b, err := c.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return pos.Order{}, false, nil
	}
	if err != nil {
		return pos.Order{}, false, err
	}
	var o pos.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return pos.Order{}, false, err
	}
	return o, true, nil
}

func (c *SessionCache) ClearCart(ctx context.Context) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyCartSnapshot, c.Tenant)).Err()
}

func (c *SessionCache) SaveToken(ctx context.Context, token string) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeySessionToken, c.Tenant), token, TTLSessionToken).Err()
}

func (c *SessionCache) LoadToken(ctx context.Context) (string, error) {
	tok, err := c.RDB.Get(ctx, fmt.Sprintf(KeySessionToken, c.Tenant)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (c *SessionCache) ClearToken(ctx context.Context) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeySessionToken, c.Tenant)).Err()
}

// EventDedup marks event ids as processed. SeenEvent reports true only if
// the id was marked before this call.
type EventDedup struct {
	RDB *redis.Client
}

func (d *EventDedup) SeenEvent(ctx context.Context, scope, eventID string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, scope, eventID)
	set, err := d.RDB.SetNX(ctx, key, "1", TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
