package redislock

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/coursex/coursex-backend/internal/platform/envutil"
	"github.com/coursex/coursex-backend/internal/platform/logger"
)

// RunLock guards against overlapping ETL invocations. The scheduler owns
// overlap prevention; this lock backs it when REDIS_ADDR is configured and
// degrades to a no-op otherwise.
type RunLock interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
	Close() error
}

type noopLock struct{}

func (noopLock) Acquire(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (noopLock) Release(context.Context, string, string) error { return nil }
func (noopLock) Close() error                                  { return nil }

type redisLock struct {
	log *logger.Logger
	rdb *goredis.Client
}

// New returns a redis-backed lock when REDIS_ADDR is set, else a no-op.
func New(log *logger.Logger) (RunLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		log.Debug("REDIS_ADDR unset; run lock disabled")
		return noopLock{}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisLock{log: log.With("service", "RunLock"), rdb: rdb}, nil
}

func (l *redisLock) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return ok, nil
}

// releaseScript deletes the key only when this invocation still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLock) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{key}, owner).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (l *redisLock) Close() error {
	return l.rdb.Close()
}
