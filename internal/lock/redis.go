package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	// Prefix is prepended to every lock key.
	Prefix string
	// TTL bounds how long a crashed holder can keep a room locked.
	TTL time.Duration
	// RetryInterval is the polling period while the key is held elsewhere.
	RetryInterval time.Duration
}

// RedisLocker extends per-room exclusion across service instances sharing one Redis.
// Waiters inside the same process queue on a local KeyedMutex first, so only one
// goroutine per key polls Redis.
type RedisLocker struct {
	client *redis.Client
	cfg    RedisConfig
	local  *KeyedMutex
	logger *zerolog.Logger
}

// NewRedisLocker constructs a locker; zero config values get defaults.
func NewRedisLocker(client *redis.Client, cfg RedisConfig, logger *zerolog.Logger) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "roombooking:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 25 * time.Millisecond
	}
	return &RedisLocker{
		client: client,
		cfg:    cfg,
		local:  NewKeyedMutex(),
		logger: logger,
	}
}

// Lock waits until the key is free in this process and in Redis.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	redisKey := l.cfg.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("acquire redis lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctxRelease, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctxRelease, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				if l.logger != nil {
					l.logger.Error().Err(err).Str("key", redisKey).Msg("Failed to release redis lock")
				}
			}
			unlockLocal()
		})
	}, nil
}
