package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// DefaultCacheTTL bounds how long a cached embedding lives.
const DefaultCacheTTL = 7 * 24 * time.Hour

// RedisCache implements KV on top of rueidis.
type RedisCache struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. A zero ttl selects DefaultCacheTTL.
func NewRedisCache(addr, password string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get retrieves a value by key. A missing key returns ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores value with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	cmd := r.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(r.ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *RedisCache) Close() {
	r.client.Close()
}
