package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koios/frame-renderer/internal/config"
	"github.com/koios/frame-renderer/pkg/models"
)

// Redis is a shared connection used by the Redis-backed stores.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a new shared Redis instance
func NewRedis(cfg *config.RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Redis{client: rdb, prefix: cfg.KeyPrefix}
}

// NewRedisFromClient creates a new Redis instance from an existing client
func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping tests the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// buildKey creates a scoped key: prefix:namespace:key
func (r *Redis) buildKey(namespace, key string) (string, error) {
	k, err := checkKey(key)
	if err != nil {
		return "", err
	}
	if r.prefix == "" {
		return fmt.Sprintf("%s:%s", namespace, k), nil
	}
	return fmt.Sprintf("%s:%s:%s", r.prefix, namespace, k), nil
}

// KV returns a KV storing keys under namespace with the given expiry.
func (r *Redis) KV(namespace string, ttl time.Duration) *RedisKV {
	return &RedisKV{redis: r, namespace: namespace, ttl: ttl}
}

// Frames returns the Redis frame store.
func (r *Redis) Frames() *RedisFrames {
	return &RedisFrames{redis: r}
}

// RedisKV implements the KV capability on Redis strings.
type RedisKV struct {
	redis     *Redis
	namespace string
	ttl       time.Duration
}

// Get retrieves a value from Redis
func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	redisKey, err := k.redis.buildKey(k.namespace, key)
	if err != nil {
		return nil, false, err
	}

	result, err := k.redis.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Key doesn't exist
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get key %s from Redis: %w", redisKey, err)
	}

	return result, true, nil
}

// Put stores a value in Redis with the store's TTL
func (k *RedisKV) Put(ctx context.Context, key string, value []byte) error {
	redisKey, err := k.redis.buildKey(k.namespace, key)
	if err != nil {
		return err
	}

	if err := k.redis.client.Set(ctx, redisKey, value, k.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in Redis: %w", redisKey, err)
	}

	return nil
}

// Delete removes a key
func (k *RedisKV) Delete(ctx context.Context, key string) error {
	redisKey, err := k.redis.buildKey(k.namespace, key)
	if err != nil {
		return err
	}
	if err := k.redis.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", redisKey, err)
	}
	return nil
}

// Flush removes every key in the namespace
func (k *RedisKV) Flush(ctx context.Context) error {
	pattern, err := k.redis.buildKey(k.namespace, "*")
	if err != nil {
		return err
	}

	iter := k.redis.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan for keys with pattern %s: %w", pattern, err)
	}

	if len(keys) > 0 {
		if err := k.redis.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
	}

	return nil
}

// RedisFrames stores frame records as JSON strings under prefix:frame:id.
type RedisFrames struct {
	redis *Redis
}

// GetFrame loads a frame record
func (f *RedisFrames) GetFrame(ctx context.Context, id string) (*models.FrameRecord, error) {
	key, err := f.redis.buildKey("frame", id)
	if err != nil {
		return nil, err
	}

	data, err := f.redis.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("frame %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get frame %s from Redis: %w", id, err)
	}

	var record models.FrameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", id, err)
	}
	if record.ID == "" {
		record.ID = id
	}
	return &record, nil
}

// PutFrame saves a frame record
func (f *RedisFrames) PutFrame(ctx context.Context, record *models.FrameRecord) error {
	key, err := f.redis.buildKey("frame", record.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode frame %s: %w", record.ID, err)
	}
	if err := f.redis.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save frame %s: %w", record.ID, err)
	}
	return nil
}
