package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clothingstore/catalog-service/internal/platform/logger"
	"github.com/clothingstore/catalog-service/internal/port/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cacheRepository struct {
	client *redis.Client
	logger *logger.Logger
}

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", zap.String("address", addr), zap.Error(err))
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	log.Info("Successfully connected to Redis", zap.String("address", addr))
	return rdb, nil
}

// NewCacheRepository wraps a Redis client behind the cache port.
func NewCacheRepository(client *redis.Client, log *logger.Logger) cache.Repository {
	return &cacheRepository{
		client: client,
		logger: log.Named("RedisCache"),
	}
}

func (r *cacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		r.logger.Error("Redis Get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

func (r *cacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Redis Set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Redis Del failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
