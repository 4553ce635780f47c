package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pdf-form-drafts/internal/domain"
)

// NoGuard performs no serialisation. Version assignment is a plain
// read-max-then-insert, so concurrent creates may pick the same number.
type NoGuard struct{}

func (NoGuard) Acquire(context.Context, string, string) (func(), error) {
	return func() {}, nil
}

// LocalGuard serialises version assignment per (user, template) inside one
// process.
type LocalGuard struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{locks: make(map[string]*keyLock)}
}

func (g *LocalGuard) Acquire(ctx context.Context, userID, templateID string) (func(), error) {
	key := guardKey(userID, templateID)

	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &keyLock{}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	if err := ctx.Err(); err != nil {
		g.release(key, l)
		return nil, err
	}
	return func() { g.release(key, l) }, nil
}

func (g *LocalGuard) release(key string, l *keyLock) {
	l.mu.Unlock()
	g.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, key)
	}
	g.mu.Unlock()
}

const (
	redisLockPrefix = "drafts:version-lock:"
	redisLockTTL    = 10 * time.Second
	redisLockPoll   = 25 * time.Millisecond
)

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisGuard serialises version assignment across replicas with a Redis lock
// (SET NX PX plus compare-and-delete on release).
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger domain.Logger
}

func NewRedisGuard(client *redis.Client, logger domain.Logger) *RedisGuard {
	return &RedisGuard{client: client, ttl: redisLockTTL, logger: logger}
}

func (g *RedisGuard) Acquire(ctx context.Context, userID, templateID string) (func(), error) {
	key := redisLockPrefix + guardKey(userID, templateID)
	token := uuid.NewString()

	for {
		ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire version lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redisLockPoll):
		}
	}

	return func() {
		// Release must not be cut short by a cancelled request context.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, g.client, []string{key}, token).Err(); err != nil {
			g.logger.Error("Failed to release version lock", err, "key", key)
		}
	}, nil
}

func guardKey(userID, templateID string) string {
	return userID + "|" + templateID
}
