package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("snapshot refresh lock is held by another process")

// Locker serializes scheduled refreshes across replicas.
type Locker interface {
	// TryLock acquires the lock for ttl, returning ErrLockHeld when another
	// holder has it. The returned func releases it.
	TryLock(ctx context.Context, ttl time.Duration) (func(), error)
}

// NoopLocker always succeeds; used when only one process schedules refreshes.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, time.Duration) (func(), error) {
	return func() {}, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX PX lock released only by its holder.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
}

func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	if prefix != "" {
		prefix += ":"
	}
	return &RedisLocker{client: client, key: prefix + "publicmap:snapshot-lock"}
}

func (l *RedisLocker) TryLock(ctx context.Context, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}, nil
}
