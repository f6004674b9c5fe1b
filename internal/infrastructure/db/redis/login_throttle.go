package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/account-service/internal/core/ports"
)

const throttleKeyPrefix = "login:failures:"

// LoginThrottle counts failed logins per key inside a fixed window.
// Key format: login:failures:<email>
type LoginThrottle struct {
	client      redis.UniversalClient
	maxFailures int64
	window      time.Duration
}

var _ ports.LoginThrottle = (*LoginThrottle)(nil)

// NewLoginThrottle blocks a key once maxFailures failures land within window.
// maxFailures <= 0 disables blocking; failures are still counted.
func NewLoginThrottle(client redis.UniversalClient, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxFailures: int64(maxFailures), window: window}
}

func (t *LoginThrottle) Blocked(ctx context.Context, key string) (bool, error) {
	if t.maxFailures <= 0 {
		return false, nil
	}
	n, err := t.client.Get(ctx, t.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxFailures, nil
}

// RecordFailure increments the counter. The window starts at the first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	k := t.key(key)
	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	if n == 1 && t.window > 0 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			return fmt.Errorf("throttle expire: %w", err)
		}
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.key(key)).Err()
}

func (t *LoginThrottle) key(k string) string {
	return throttleKeyPrefix + k
}
