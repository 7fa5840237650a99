package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payauth-platform/internal/observability"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by LockStore.Acquire when the lock is still held
// by somebody else when the acquire deadline elapses.
var ErrLockHeld = errors.New("redis: lock held by another holder")

// releaseScript releases the lock only if the stored holder id still
// matches; this is the fencing check that keeps a timed-out holder from
// releasing a lock somebody else has since acquired.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// extendScript pushes out the TTL only if the stored holder id still
// matches.
const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`

// LockStore implements ports.LockManager using Redis SET NX PX and
// fencing by a per-acquisition holder id, with Lua-script atomic release
// and extend.
type LockStore struct {
	client  *goredis.Client
	prefix  string
	release *goredis.Script
	extend  *goredis.Script
	retry   time.Duration
}

// NewLockStore creates a new Redis-backed distributed lock manager. retry
// is the poll interval used while waiting for a contended lock.
func NewLockStore(client *goredis.Client, retry time.Duration) *LockStore {
	return &LockStore{
		client:  client,
		prefix:  "lock:",
		release: goredis.NewScript(releaseScript),
		extend:  goredis.NewScript(extendScript),
		retry:   retry,
	}
}

// Acquire blocks up to ctx's deadline trying to take the named lock for
// ttlSeconds, returning a holder id on success.
func (s *LockStore) Acquire(ctx context.Context, name string, ttlSeconds int64) (string, error) {
	key := s.prefix + name
	holderID := uuid.NewString()
	ttl := time.Duration(ttlSeconds) * time.Second

	ticker := time.NewTicker(s.retry)
	defer ticker.Stop()

	contended := false
	for {
		ok, err := s.client.SetNX(ctx, key, holderID, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("redis lock acquire: %w", err)
		}
		if ok {
			if contended {
				observability.LockContentionTotal.WithLabelValues("acquired").Inc()
			}
			return holderID, nil
		}
		contended = true

		select {
		case <-ctx.Done():
			observability.LockContentionTotal.WithLabelValues("timed_out").Inc()
			return "", ErrLockHeld
		case <-ticker.C:
		}
	}
}

// Release frees the lock only if holderID still matches the current
// holder; a mismatch is a no-op, not an error.
func (s *LockStore) Release(ctx context.Context, name, holderID string) error {
	key := s.prefix + name
	if err := s.release.Run(ctx, s.client, []string{key}, holderID).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}

// Extend pushes the lock's TTL out, failing if holderID no longer matches.
func (s *LockStore) Extend(ctx context.Context, name, holderID string, ttlSeconds int64) error {
	key := s.prefix + name
	ttlMillis := ttlSeconds * 1000

	result, err := s.extend.Run(ctx, s.client, []string{key}, holderID, ttlMillis).Int64()
	if err != nil {
		return fmt.Errorf("redis lock extend: %w", err)
	}
	if result == 0 {
		return ErrLockHeld
	}
	return nil
}
