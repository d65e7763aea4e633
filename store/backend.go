package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Backend.Load when key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Backend is the opaque key-value store of JSON documents the pool service
// is persisted through. One document per pool, keyed by UserPoolId. Any
// implementation satisfying this interface may back a Facade; the domain
// logic never depends on which one is chosen.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// RedisBackend stores each pool document as a single string value under
// prefix+key, mirroring the flat-key convention the session store uses for
// Redis-backed state.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client. prefix namespaces keys so a
// pool store can share a Redis instance with unrelated data.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) fullKey(key string) string {
	return b.prefix + key
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, b.fullKey(key), data, 0).Err()
}

// MemoryBackend is an in-process Backend used by tests and by cmd/cognitoemu
// when no Redis address is given; it stores documents in a guarded map rather
// than a persistence engine, matching the spec's "persistence backend
// choice is opaque" boundary.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (b *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.docs[key] = cp
	return nil
}

// marshalPool and unmarshalPool centralize the document encoding so the
// documents Pool writes and the documents Load reads share one shape.
func marshalPool(p *UserPool) ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalPool(data []byte) (*UserPool, error) {
	var p UserPool
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
