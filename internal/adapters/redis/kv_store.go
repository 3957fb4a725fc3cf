package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/domain"
)

const scanBatchSize = 200

var _ domain.KeyValueStore = (*KVStore)(nil)

// KVStore implements domain.KeyValueStore on a Redis database. Values are stored as
// plain strings without a Redis TTL; record expiry is tracked inside the value.
type KVStore struct {
	redisClient redis.UniversalClient
	logger      domain.Logger
}

// NewKVStore creates a new Redis-backed store.
func NewKVStore(redisClient redis.UniversalClient, logger domain.Logger) *KVStore {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewKVStore")
	}
	if logger == nil {
		panic("logger cannot be nil in NewKVStore")
	}
	return &KVStore{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get retrieves the raw value for key.
func (a *KVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Storage key miss", "key", key)
		return "", domain.ErrKeyNotFound
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get key from Redis", "key", key, "error", err.Error())
		return "", fmt.Errorf("redis GET for key '%s' failed: %w", key, err)
	}
	return val, nil
}

// Set stores value under key with no Redis-level expiry.
func (a *KVStore) Set(ctx context.Context, key, value string) error {
	if err := a.redisClient.Set(ctx, key, value, 0).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set key in Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Stored key in Redis", "key", key, "bytes", len(value))
	return nil
}

// Remove deletes key.
func (a *KVStore) Remove(ctx context.Context, key string) error {
	if err := a.redisClient.Del(ctx, key).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete key from Redis", "key", key, "error", err.Error())
		return fmt.Errorf("redis DEL for key '%s' failed: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN so large databases are not blocked by KEYS.
// SCAN may report a key more than once; each key is returned once.
func (a *KVStore) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	seen := make(map[string]struct{})
	for {
		batch, next, err := a.redisClient.Scan(ctx, cursor, "*", scanBatchSize).Result()
		if err != nil {
			a.logger.Error(ctx, "Redis SCAN failed", "cursor", cursor, "error", err.Error())
			return nil, fmt.Errorf("redis SCAN at cursor %d failed: %w", cursor, err)
		}
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return keys, nil
}

// Ping checks connectivity.
func (a *KVStore) Ping(ctx context.Context) error {
	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING failed: %w", err)
	}
	return nil
}
