package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisClinicLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClinicLocker creates a locker that uses a per clinic Redis key.
// Contention fails fast with ErrNotAcquired.
func NewRedisClinicLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisClinicLocker{
		client: client,
		ttl:    ttl,
	}
}

func clinicKey(clinicID uuid.UUID) string {
	return fmt.Sprintf("lock:clinic:%s", clinicID.String())
}

func (l *redisClinicLocker) WithClinicLock(ctx context.Context, clinicID uuid.UUID, fn func(ctx context.Context) error) error {
	key := clinicKey(clinicID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire clinic lock: %w", err)
	}
	if !ok {
		return ErrNotAcquired
	}

	defer func() {
		// The caller's ctx may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisClinicLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release clinic lock: %w", err)
	}
	return nil
}
