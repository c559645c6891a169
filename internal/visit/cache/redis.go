// Package cache indexes live gate tokens in Redis so check-in lookups skip
// the token scan. The visit store stays authoritative: a hit is only a hint
// and callers re-validate the visit it points to.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "gatehouse/pkg/domain"
)

// Kind names the token being indexed.
type Kind string

const (
	KindOTP Kind = "otp"
	KindQR  Kind = "qr"
)

const keyPrefix = "gatehouse:visit-token:"

// TokenCache maps a gate token to the visit it admits.
type TokenCache struct {
	client *redis.Client
}

func New(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func key(kind Kind, token string) string {
	return keyPrefix + string(kind) + ":" + token
}

// Put indexes both tokens of a visit until they expire. Non-positive TTLs
// are ignored.
func (c *TokenCache) Put(ctx context.Context, visitID id.VisitID, otp, qr string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	if otp != "" {
		pipe.Set(ctx, key(KindOTP, otp), visitID.String(), ttl)
	}
	if qr != "" {
		pipe.Set(ctx, key(KindQR, qr), visitID.String(), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache visit tokens: %w", err)
	}
	return nil
}

// Get returns the visit indexed under the token. ok is false on a miss.
func (c *TokenCache) Get(ctx context.Context, kind Kind, token string) (visitID id.VisitID, ok bool, err error) {
	raw, err := c.client.Get(ctx, key(kind, token)).Result()
	if errors.Is(err, redis.Nil) {
		return id.VisitID{}, false, nil
	}
	if err != nil {
		return id.VisitID{}, false, fmt.Errorf("read visit token: %w", err)
	}
	visitID, err = id.ParseVisitID(raw)
	if err != nil {
		// stale or foreign value; treat as a miss
		return id.VisitID{}, false, nil
	}
	return visitID, true, nil
}

// Delete drops both tokens of a visit.
func (c *TokenCache) Delete(ctx context.Context, otp, qr string) error {
	keys := make([]string, 0, 2)
	if otp != "" {
		keys = append(keys, key(KindOTP, otp))
	}
	if qr != "" {
		keys = append(keys, key(KindQR, qr))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("drop visit tokens: %w", err)
	}
	return nil
}
