package lock

import (
	"fmt"

	"github.com/boletohub/backend/internal/domain/provider"
	"github.com/boletohub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SyncLockFactory creates sync locks based on configuration
type SyncLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SyncLockFactoryOption is a functional option for configuring the factory
type SyncLockFactoryOption func(*SyncLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SyncLockFactoryOption {
	return func(f *SyncLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory lock
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SyncLockFactoryOption {
	return func(f *SyncLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSyncLockFactory creates a new factory
func NewSyncLockFactory(cfg config.RedisConfig, opts ...SyncLockFactoryOption) *SyncLockFactory {
	f := &SyncLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLock creates a Redis-backed sync lock
func (f *SyncLockFactory) CreateRedisLock() (provider.SyncLock, error) {
	lock, err := NewRedisSyncLock(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis sync lock: %w", err)
	}
	return lock, nil
}

// CreateInMemoryLock creates an in-memory sync lock.
// WARNING: in-memory leases are not shared across process instances, which
// can let two instances reconcile the same tenant/provider concurrently.
func (f *SyncLockFactory) CreateInMemoryLock() provider.SyncLock {
	return NewInMemorySyncLock()
}

// CreateLock tries Redis first and falls back to in-memory when allowed
func (f *SyncLockFactory) CreateLock() (provider.SyncLock, error) {
	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis sync lock")
		return lock, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for sync locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync lock",
		zap.Error(err),
	)
	return f.CreateInMemoryLock(), nil
}
