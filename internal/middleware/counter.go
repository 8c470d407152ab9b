package middleware

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const memoryCounterSize = 4096

// Counter counts hits per key in a fixed window that starts with the first
// hit. ttl is the time left until the window resets.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// NewCounter counts in redis when a client is configured and in process
// memory otherwise.
func NewCounter(client *redis.Client) Counter {
	if client == nil {
		return NewMemoryCounter(memoryCounterSize)
	}
	return &RedisCounter{client: client}
}

type RedisCounter struct {
	client *redis.Client
}

func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// A lost Expire leaves the key immortal; start a new window.
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter keeps the most recently used windows; evicted keys start
// over, which only ever lets a client through early.
type MemoryCounter struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryWindow]
	now   func() time.Time
}

func NewMemoryCounter(size int) *MemoryCounter {
	if size <= 0 {
		size = memoryCounterSize
	}
	cache, _ := lru.New[string, memoryWindow](size)
	return &MemoryCounter{cache: cache, now: time.Now}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.cache.Get(key)
	if !ok || !now.Before(w.resetAt) {
		w = memoryWindow{resetAt: now.Add(window)}
	}
	w.count++
	m.cache.Add(key, w)
	return w.count, w.resetAt.Sub(now), nil
}
