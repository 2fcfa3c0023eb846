package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RedisClient is the metadata store: a plain string-to-string mapping
// with no cross-key atomicity. All values are durable (no TTL); session
// expiry is enforced by the auth layer, not the store.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient initializes a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// Get retrieves a value with tracing. A missing key is not an error.
func (rc *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.get",
		trace.WithAttributes(
			attribute.String("key", key),
		),
	)
	defer span.End()

	value, err := rc.client.Get(ctx, key).Result()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("found", false))
		return "", false, nil
	} else if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}

	span.SetAttributes(attribute.Bool("found", true))
	return value, true, nil
}

// Put stores a value with tracing
func (rc *RedisClient) Put(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "redis.put",
		trace.WithAttributes(
			attribute.String("key", key),
			attribute.Int("value_bytes", len(value)),
		),
	)
	defer span.End()

	if err := rc.client.Set(ctx, key, value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete removes a key with tracing. Deleting an absent key is a no-op.
func (rc *RedisClient) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "redis.delete",
		trace.WithAttributes(
			attribute.String("key", key),
		),
	)
	defer span.End()

	if err := rc.client.Del(ctx, key).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}
