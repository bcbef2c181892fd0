// Package registry remembers which products were already committed so the
// crawler can reject duplicates.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const DefaultSetKey = "crawler:committed_products"

type Registry interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// RedisClient is the subset of the redis client the registry uses.
type RedisClient interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

type RedisRegistry struct {
	client RedisClient
	setKey string
}

func NewRedisRegistry(client RedisClient, setKey string) *RedisRegistry {
	if setKey == "" {
		setKey = DefaultSetKey
	}
	return &RedisRegistry{client: client, setKey: setKey}
}

func (r *RedisRegistry) Seen(ctx context.Context, key string) (bool, error) {
	seen, err := r.client.SIsMember(ctx, r.setKey, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check product registry: %w", err)
	}
	return seen, nil
}

func (r *RedisRegistry) Mark(ctx context.Context, key string) error {
	if err := r.client.SAdd(ctx, r.setKey, key).Err(); err != nil {
		return fmt.Errorf("failed to mark product as committed: %w", err)
	}
	return nil
}

// MemoryRegistry is a process-local registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{keys: make(map[string]struct{})}
}

func (m *MemoryRegistry) Seen(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *MemoryRegistry) Mark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = struct{}{}
	return nil
}

func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
