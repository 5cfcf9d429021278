package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "reconcile:lock:"

// RedisSyncLock implements provider.SyncLock using Redis. SETNX with a TTL
// gives an atomic lease that survives process crashes: the key simply
// expires and the next run can acquire it.
type RedisSyncLock struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisSyncLock creates a Redis-backed sync lock
func NewRedisSyncLock(cfg RedisConfig) (*RedisSyncLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSyncLock{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisSyncLockWithClient creates a lock with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisSyncLockWithClient(client *redis.Client, keyPrefix string) *RedisSyncLock {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSyncLock{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire attempts to take the lease via SETNX
func (l *RedisSyncLock) Acquire(ctx context.Context, tenantID uuid.UUID, code provider.Code, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key(tenantID, code), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	return acquired, nil
}

// Release frees the lease
func (l *RedisSyncLock) Release(ctx context.Context, tenantID uuid.UUID, code provider.Code) error {
	if err := l.client.Del(ctx, l.key(tenantID, code)).Err(); err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (l *RedisSyncLock) Close() error {
	return l.client.Close()
}

func (l *RedisSyncLock) key(tenantID uuid.UUID, code provider.Code) string {
	return fmt.Sprintf("%s%s:%s", l.keyPrefix, tenantID, code)
}

// Ensure RedisSyncLock implements SyncLock
var _ provider.SyncLock = (*RedisSyncLock)(nil)
