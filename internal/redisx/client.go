package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func newClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Connect builds the client and verifies the server is reachable. Cache
// loss is tolerated at runtime, but a bad address is a config error worth
// failing fast on.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	r := newClient(addr)
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}
