package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gatehouse:ratelimit:"

// Redis shares windows across replicas. The window starts at the first hit:
// INCR creates the key and EXPIRE NX bounds it without extending it.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Increment(ctx context.Context, key string, length time.Duration, now time.Time) (int, time.Time, error) {
	k := keyPrefix + key
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, length)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("increment rate window: %w", err)
	}
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = length
	}
	return int(incr.Val()), now.Add(remaining), nil
}
