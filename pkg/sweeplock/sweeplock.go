package sweeplock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKey = "escalation:sweep:lock"

// Lock is a Redis-backed mutex guarding the escalation sweep so that only
// one portal instance runs a sweep at a time. The TTL releases the lock if
// the holder crashes mid-sweep.
type Lock struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Lock {
	return &Lock{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// TryAcquire attempts to take the sweep lock. Returns true if this caller
// holds it. When Redis is unreachable the lock fails open: sweeps are
// idempotent, so running one extra is safer than running none.
func (l *Lock) TryAcquire(ctx context.Context) bool {
	ok, err := l.rdb.SetNX(ctx, lockKey, 1, l.ttl).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("Redis sweep lock check failed, allowing sweep",
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && l.logger != nil {
		l.logger.Info("Sweep lock held by another instance, skipping",
			zap.String("lock_key", lockKey),
		)
	}

	return ok
}

// Release drops the sweep lock.
func (l *Lock) Release(ctx context.Context) {
	if err := l.rdb.Del(ctx, lockKey).Err(); err != nil && l.logger != nil {
		l.logger.Warn("Failed to release sweep lock", zap.Error(err))
	}
}
