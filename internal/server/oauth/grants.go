package oauth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// GrantStore records single-use claims (authorization codes, state nonces)
// and best-effort "authorization pending" markers.
type GrantStore interface {
	// Claim atomically reserves key for ttl. It reports false when the key
	// is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	SetPending(ctx context.Context, subjectID string, ttl time.Duration) error
	Pending(ctx context.Context, subjectID string) (bool, error)
	ClearPending(ctx context.Context, subjectID string) error
}

// MemoryGrants is a process-local GrantStore. It is correct only for a
// single server instance.
type MemoryGrants struct {
	mu      sync.Mutex
	claims  map[string]time.Time
	pending map[string]time.Time
	now     func() time.Time
}

func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{
		claims:  make(map[string]time.Time),
		pending: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (g *MemoryGrants) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.claims {
		if !now.Before(exp) {
			delete(g.claims, k)
		}
	}
	if _, held := g.claims[key]; held {
		return false, nil
	}
	g.claims[key] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGrants) SetPending(ctx context.Context, subjectID string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[subjectID] = g.now().Add(ttl)
	return nil
}

func (g *MemoryGrants) Pending(ctx context.Context, subjectID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.pending[subjectID]
	if !ok {
		return false, nil
	}
	if !g.now().Before(exp) {
		delete(g.pending, subjectID)
		return false, nil
	}
	return true, nil
}

func (g *MemoryGrants) ClearPending(ctx context.Context, subjectID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, subjectID)
	return nil
}

// redisCmdable is the subset of *redis.Client used by RedisGrants.
type redisCmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisGrants shares claims between server instances with SET NX EX.
type RedisGrants struct {
	rdb    redisCmdable
	prefix string
}

func NewRedisGrants(rdb redisCmdable, prefix string) *RedisGrants {
	if prefix == "" {
		prefix = "dataimport"
	}
	return &RedisGrants{rdb: rdb, prefix: prefix}
}

func (g *RedisGrants) claimKey(key string) string {
	return g.prefix + ":claim:" + key
}

func (g *RedisGrants) pendingKey(subjectID string) string {
	return g.prefix + ":pending:" + subjectID
}

func (g *RedisGrants) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.rdb.SetNX(ctx, g.claimKey(key), 1, ttl).Result()
}

func (g *RedisGrants) SetPending(ctx context.Context, subjectID string, ttl time.Duration) error {
	return g.rdb.Set(ctx, g.pendingKey(subjectID), 1, ttl).Err()
}

func (g *RedisGrants) Pending(ctx context.Context, subjectID string) (bool, error) {
	n, err := g.rdb.Exists(ctx, g.pendingKey(subjectID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisGrants) ClearPending(ctx context.Context, subjectID string) error {
	return g.rdb.Del(ctx, g.pendingKey(subjectID)).Err()
}
