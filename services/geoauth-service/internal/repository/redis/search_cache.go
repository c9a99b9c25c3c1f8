package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// Префикс ключей кэша поиска в Redis
const searchKeyPrefix = "search:"

// SearchCache быстрый слой кэша результатов геокодирования поверх Redis.
// PostgreSQL остается источником истины: потеря ключей Redis приводит
// только к повторному чтению из базы
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSearchCache создает новый экземпляр SearchCache
func NewSearchCache(client *redis.Client, ttl time.Duration) repository.SearchCache {
	return &SearchCache{client: client, ttl: ttl}
}

// Get возвращает закэшированный результат по нормализованному ключу
func (c *SearchCache) Get(ctx context.Context, searchKey string) ([]byte, error) {
	value, err := c.client.Get(ctx, searchKeyPrefix+searchKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.New(apperrors.ErrNotFound, "search result not cached")
		}
		return nil, fmt.Errorf("failed to get search result from redis: %w", err)
	}

	return value, nil
}

// Set сохраняет результат с TTL
func (c *SearchCache) Set(ctx context.Context, searchKey string, payload []byte) error {
	if err := c.client.Set(ctx, searchKeyPrefix+searchKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set search result in redis: %w", err)
	}

	return nil
}
