package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryKeyPrefix = "dedup:delivery:"

// Redis is the production dedup store for multi-instance deployments: SETNX
// with TTL makes first-seen checks atomic across processes.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, deliveryKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark delivery processed: %w", err)
	}
	return first, nil
}

func (s *Redis) ClearProcessed(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, deliveryKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear processed delivery: %w", err)
	}
	return nil
}
