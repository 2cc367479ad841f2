// Package genlock hands out short-lived per-key locks so that only one model
// generation runs for a survey session at a time.
package genlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (l *Redis) TryLock(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("redis release %s: %w", key, err)
		}
		return nil
	}
	return unlock, true, nil
}

// Memory is the single-process equivalent of Redis.
type Memory struct {
	cache *cache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{cache: cache.New(ttl, time.Minute)}
}

func (l *Memory) TryLock(_ context.Context, key string) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	if err := l.cache.Add(key, token, cache.DefaultExpiration); err != nil {
		return nil, false, nil
	}
	unlock := func(context.Context) error {
		if v, ok := l.cache.Get(key); ok && v == token {
			l.cache.Delete(key)
		}
		return nil
	}
	return unlock, true, nil
}
