package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const redisRetryInterval = 25 * time.Millisecond

// RedisLocker shares keyed locks across processes. Each key is a SetNX with a
// random token and a TTL so a crashed holder cannot wedge the key forever.
type RedisLocker struct {
	client  *redis.Client
	script  *redis.Script
	timeout time.Duration
	ttl     time.Duration
	prefix  string
}

func NewRedisLocker(client *redis.Client, timeout, ttl time.Duration) *RedisLocker {
	if client == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:  client,
		script:  redis.NewScript(lockReleaseScript),
		timeout: timeout,
		ttl:     ttl,
		prefix:  "gescom:lock:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	keys = normalizeKeys(keys)
	deadline := time.Now().Add(l.timeout)

	type heldKey struct {
		key   string
		token string
	}
	held := make([]heldKey, 0, len(keys))
	release := func() {
		// Release must run even when the caller's context is already done.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = l.release(releaseCtx, held[i].key, held[i].token)
		}
	}

	for _, key := range keys {
		token, err := l.acquireOne(ctx, key, deadline)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, heldKey{key: key, token: token})
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		release()
	}, nil
}

func (l *RedisLocker) acquireOne(ctx context.Context, key string, deadline time.Time) (string, error) {
	for {
		token, ok, err := l.tryLock(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockTimeout.WithEntity(key)
		}
		select {
		case <-ctx.Done():
			return "", ErrLockTimeout.WithEntity(key).Wrap(ctx.Err())
		case <-time.After(redisRetryInterval):
		}
	}
}

func (l *RedisLocker) tryLock(ctx context.Context, key string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}
