package cache

import (
	"fmt"
	"io"

	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/infrastructure/config"
	"go.uber.org/zap"
)

// HandoffStore is a checkout.HandoffStore that owns resources
type HandoffStore interface {
	checkout.HandoffStore
	io.Closer
}

// HandoffStoreFactory creates handoff stores based on configuration
type HandoffStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// HandoffStoreFactoryOption is a functional option for configuring the factory
type HandoffStoreFactoryOption func(*HandoffStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) HandoffStoreFactoryOption {
	return func(f *HandoffStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory store. Default is true.
func WithInMemoryFallback(allow bool) HandoffStoreFactoryOption {
	return func(f *HandoffStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewHandoffStoreFactory creates a new factory
func NewHandoffStoreFactory(cfg config.RedisConfig, opts ...HandoffStoreFactoryOption) *HandoffStoreFactory {
	f := &HandoffStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the in-memory store when Redis is disabled. Otherwise
// it connects to Redis, falling back to memory when allowed.
func (f *HandoffStoreFactory) CreateStore() (HandoffStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory handoff store")
		return NewInMemoryHandoffStore(), nil
	}

	store, err := NewRedisHandoffStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis handoff store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for handoffs but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory handoff store. "+
		"Handoffs will not be visible to other instances.",
		zap.Error(err),
	)
	return NewInMemoryHandoffStore(), nil
}
