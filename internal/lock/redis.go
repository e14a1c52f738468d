package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisClient is the subset of the go-redis client used by Redis.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisConfig tunes lock expiry and polling.
type RedisConfig struct {
	// Prefix namespaces lock keys.
	Prefix string
	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration
	// WaitTimeout bounds how long Lock polls for a busy key.
	WaitTimeout time.Duration
	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration
}

// DefaultRedisConfig returns the settings used when a field is left zero.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:        "reservations:lock:",
		TTL:           10 * time.Second,
		WaitTimeout:   5 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

// Redis implements a keyed lock with SET NX PX and token-checked release.
type Redis struct {
	client RedisClient
	config RedisConfig
	logger *slog.Logger
	token  func() string
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client RedisClient, config RedisConfig, logger *slog.Logger) *Redis {
	defaults := DefaultRedisConfig()
	if config.Prefix == "" {
		config.Prefix = defaults.Prefix
	}
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = defaults.WaitTimeout
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = defaults.RetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		config: config,
		logger: logger.With("component", "redis_lock"),
		token:  uuid.NewString,
	}
}

// Lock acquires every key in sorted order. On failure, keys already taken
// are released before returning.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := normalizeKeys(keys)
	token := r.token()

	waitCtx, cancel := context.WithTimeout(ctx, r.config.WaitTimeout)
	defer cancel()

	held := make([]string, 0, len(ordered))
	for _, key := range ordered {
		name := r.config.Prefix + key
		if err := r.acquire(waitCtx, name, token); err != nil {
			r.release(context.WithoutCancel(ctx), held, token)
			return nil, fmt.Errorf("lock %q: %w", key, err)
		}
		held = append(held, name)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		r.release(context.WithoutCancel(ctx), held, token)
	}, nil
}

func (r *Redis) acquire(ctx context.Context, name, token string) error {
	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, name, token, r.config.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) release(ctx context.Context, names []string, token string) {
	for i := len(names) - 1; i >= 0; i-- {
		if err := r.client.Eval(ctx, releaseScript, []string{names[i]}, token).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to release lock", "key", names[i], "error", err)
		}
	}
}
