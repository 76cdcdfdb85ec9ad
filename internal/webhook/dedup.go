package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper filters webhook events the platform re-delivers.
type Deduper interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
}

// RedisDeduper implements Deduper on a Redis cache.
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(addr string) *RedisDeduper {
	return &RedisDeduper{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (d *RedisDeduper) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	_, err := d.client.Get(ctx, dedupKey(eventID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return true, nil
}

func (d *RedisDeduper) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := d.client.Set(ctx, dedupKey(eventID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func dedupKey(eventID string) string {
	return "dedup:msg:" + eventID
}
