package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/COPUR/enterprise-loan-management-system-sub015/internal/domain"
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisConsentLocker serializes payment admission per consent with a
// SET NX PX lease. Release is token-checked so an expired lease grabbed by
// another process is never deleted by the original holder.
type RedisConsentLocker struct {
	client      *redis.Client
	leaseTTL    time.Duration
	acquireWait time.Duration
	retryEvery  time.Duration
}

func NewRedisConsentLocker(client *redis.Client, leaseTTL, acquireWait time.Duration) *RedisConsentLocker {
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Second
	}
	if acquireWait <= 0 {
		acquireWait = 2 * time.Second
	}
	return &RedisConsentLocker{
		client:      client,
		leaseTTL:    leaseTTL,
		acquireWait: acquireWait,
		retryEvery:  25 * time.Millisecond,
	}
}

func (l *RedisConsentLocker) WithConsentLock(ctx context.Context, consentID string, fn func(ctx context.Context) error) error {
	key := "of:lock:consent:" + consentID
	token := uuid.NewString()

	deadline := time.Now().Add(l.acquireWait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.leaseTTL).Result()
		if err != nil {
			return fmt.Errorf("%w: consent lock: %v", domain.ErrUnavailable, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: lock acquisition timed out", domain.ErrUnavailable)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: consent lock: %v", domain.ErrUnavailable, ctx.Err())
		case <-time.After(l.retryEvery):
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}()

	return fn(ctx)
}
