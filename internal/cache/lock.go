package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/saddle-ledger/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL       = 30 * time.Second
	lockPollInterval     = 50 * time.Millisecond
	lockReleaseTimeout   = 2 * time.Second
	assignmentLockPrefix = "lock:assign"
)

// ErrLockNotAcquired 在 context 截止前未获取到锁
var ErrLockNotAcquired = errors.New("lock not acquired")

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OrderLocker 订单级互斥锁：启用 Redis 时跨进程生效，否则为进程内按 key 互斥
type OrderLocker struct {
	ttl   time.Duration
	local *keyedMutex
}

// NewOrderLocker 创建订单锁
func NewOrderLocker(ttl time.Duration) *OrderLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &OrderLocker{
		ttl:   ttl,
		local: newKeyedMutex(),
	}
}

// Acquire 阻塞直到获取锁或 ctx 结束，返回的 release 可重复调用
func (l *OrderLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if Enabled() {
		return l.acquireRedis(ctx, Key(assignmentLockPrefix, key))
	}
	return l.local.acquire(ctx, key)
}

func (l *OrderLocker) acquireRedis(ctx context.Context, redisKey string) (func(), error) {
	token := uuid.NewString()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		ok, err := redisClient.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
					defer cancel()
					if err := releaseLockScript.Run(releaseCtx, redisClient, []string{redisKey}, token).Err(); err != nil {
						logger.Warnw("redis_lock_release_failed", "key", redisKey, "error", err)
					}
				})
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *keyedMutex) acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &keyedLock{sem: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, entry)
		return nil, ErrLockNotAcquired
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			m.unref(key, entry)
		})
	}, nil
}

func (m *keyedMutex) unref(key string, entry *keyedLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
