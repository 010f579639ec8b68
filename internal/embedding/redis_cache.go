package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/hyperjump/resumatch/pkg/utils"
)

const redisKeyPrefix = "resumatch:emb:"

// RedisCacheConfig holds connection parameters for the Redis/Valkey embedding cache.
type RedisCacheConfig struct {
	Addrs    []string
	Password string
	DB       int
	// TTL expires cached vectors; zero keeps them until evicted by Redis.
	TTL time.Duration
}

// RedisCache is a CacheStore backed by Redis via rueidis. Vectors are stored as
// little-endian float32 strings.
type RedisCache struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis.
func NewRedisCache(cfg RedisCacheConfig) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis cache: addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis cache: create client: %w", err)
	}
	return newRedisCacheWithClient(client, cfg.TTL), nil
}

func newRedisCacheWithClient(client rueidis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Name identifies the store in metrics.
func (r *RedisCache) Name() string { return "redis" }

// Get fetches the vector stored under key.
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	cmd := r.client.B().Get().Key(redisKeyPrefix + key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	vec, err := utils.BytesToFloat32s(data)
	if err != nil {
		return nil, false, fmt.Errorf("redis cache: %w", err)
	}
	return vec, true, nil
}

// Set stores vec under key, with the configured TTL when non-zero.
func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	val := rueidis.BinaryString(utils.Float32sToBytes(vec))
	var cmd rueidis.Completed
	if r.ttl > 0 {
		cmd = r.client.B().Set().Key(redisKeyPrefix + key).Value(val).Ex(r.ttl).Build()
	} else {
		cmd = r.client.B().Set().Key(redisKeyPrefix + key).Value(val).Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *RedisCache) Close() {
	r.client.Close()
}
