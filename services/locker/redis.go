package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/gradebook/core"
)

const (
	keyPrefix      = "gradebook:lock:"
	defaultLockTTL = 2 * time.Minute
)

// only the owner token may release the lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// only the owner token may extend the lock
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes writers across API replicas.
// A held lock is extended every ttl/3 until released, so it only expires after ttl when its
// holder dies without releasing it.
type RedisLocker struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger core.Logger
}

var _ core.Locker = (*RedisLocker)(nil) // interface compliance check

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger core.Logger) *RedisLocker {
	if ttl < 3*time.Millisecond {
		ttl = defaultLockTTL
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, logger: logger}
}

// NewRedisClient connects to conf.Addr and pings it.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return rdb, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return nil, core.ErrLockHeld
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(keyPrefix+key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// the caller's ctx may be done already
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, []string{keyPrefix + key}, token).Err(); err != nil {
				l.logger.Warn("lock.release_failed", err, core.LogFields{"key": key})
			}
		})
	}, nil
}

// keepAlive extends the lock until stop is closed or the lock is lost.
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			extended, err := extendScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				// transient: the next tick retries while the key has not expired
				l.logger.Warn("lock.extend_failed", err, core.LogFields{"key": key})
				continue
			}
			if extended == 0 {
				l.logger.Error("lock.lost", core.LogFields{"key": key})
				return
			}
		}
	}
}
