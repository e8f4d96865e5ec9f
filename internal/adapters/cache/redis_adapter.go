package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nowaiting/clinic-console/internal/domain/providers"
	redisclient "github.com/nowaiting/clinic-console/internal/infrastructure/clients/redis"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// RedisAdapter implements the CacheProvider interface using Redis. It backs
// the doctor fee-schedule cache; callers treat any error other than a miss
// as a cache fault and fall through to the source of truth.
type RedisAdapter struct {
	client *redisclient.Client
}

// NewRedisAdapter creates a new Redis cache adapter.
func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{
		client: client,
	}
}

// Get retrieves a value from cache. A miss returns a not-found error so
// callers can tell it apart from an unreachable cache.
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("cache key not found: %s", key))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get from cache", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration.
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	expiration := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Client().Set(ctx, key, value, expiration).Err(); err != nil {
		return apperrors.NewInternalError("failed to set in cache", err)
	}
	return nil
}

// Delete removes a value from cache.
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return apperrors.NewInternalError("failed to delete from cache", err)
	}
	return nil
}

// Exists checks if a key exists in cache.
func (a *RedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	result, err := a.client.Client().Exists(ctx, key).Result()
	if err != nil {
		return false, apperrors.NewInternalError("failed to check existence in cache", err)
	}
	return result > 0, nil
}
