package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCacheInterface is the optional shared L2 tier. Values are opaque
// encoded bytes; the tiered cache owns the encoding. Failures are logged and
// reported as misses so a Redis outage only costs a re-extraction.
type RedisCacheInterface interface {
	Set(ctx context.Context, key string, value []byte)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration)
	Get(ctx context.Context, key string) ([]byte, bool)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
	Close() error
}

// RedisCacheConfig holds the Redis connection configuration.
type RedisCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	DefaultTTL   time.Duration
	PoolSize     int
	MinIdleConns int
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "stankin:",
		DefaultTTL:   6 * time.Hour,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// RedisCache is the go-redis backed L2 tier.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
	logger     *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig, logger *slog.Logger) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	logger.Info("Redis cache connected", "addr", config.Addr, "db", config.DB)

	return &RedisCache{
		client:     client,
		keyPrefix:  config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
		logger:     logger,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	r.SetWithTTL(ctx, key, value, r.defaultTTL)
}

func (r *RedisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.fullKey(key), value, ttl).Err(); err != nil {
		r.logger.Warn("failed to set cache value", "key", key, "error", err)
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("failed to get cache value", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

func (r *RedisCache) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.fullKey(key)).Err(); err != nil {
		r.logger.Warn("failed to delete cache value", "key", key, "error", err)
	}
}

// Clear deletes every key under the configured prefix.
func (r *RedisCache) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			r.client.Del(ctx, keys...)
			keys = keys[:0]
		}
	}
	if len(keys) > 0 {
		r.client.Del(ctx, keys...)
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("failed to scan cache keys", "prefix", r.keyPrefix, "error", err)
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) fullKey(key string) string {
	return r.keyPrefix + key
}

// GenerateCacheKey joins components with ':' and appends their hash.
func GenerateCacheKey(components ...string) string {
	key := strings.Join(components, ":")
	return key + ":" + KeyHash(key)
}

// KeyHash returns a short SHA256 digest of key.
func KeyHash(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])[:16]
}

// NilRedisCache is a no-op RedisCacheInterface used when Redis is not configured.
type NilRedisCache struct{}

// NewNilRedisCache creates a no-op Redis cache.
func NewNilRedisCache() *NilRedisCache {
	return &NilRedisCache{}
}

func (n *NilRedisCache) Set(ctx context.Context, key string, value []byte) {}

func (n *NilRedisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) {}

func (n *NilRedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	return nil, false
}

func (n *NilRedisCache) Delete(ctx context.Context, key string) {}

func (n *NilRedisCache) Clear(ctx context.Context) {}

func (n *NilRedisCache) Close() error {
	return nil
}
