package cache

import (
	"fmt"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted in configuration
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Factory builds the party locker and idempotency store for the configured
// backends. The Redis client is only required when a backend asks for it.
type Factory struct {
	client *redis.Client
	logger *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithRedisClient supplies the client used by the redis backends
func WithRedisClient(client *redis.Client) FactoryOption {
	return func(f *Factory) {
		f.client = client
	}
}

// NewFactory creates a new factory
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PartyLocker returns the locker selected by cfg.Backend
func (f *Factory) PartyLocker(cfg config.LockConfig) (appfinance.PartyLocker, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		f.logger.Info("Using in-memory party lock",
			zap.Duration("wait_timeout", cfg.WaitTimeout))
		return NewInMemoryPartyLocker(cfg.WaitTimeout), nil
	case BackendRedis:
		if f.client == nil {
			return nil, fmt.Errorf("redis party lock requires a Redis client")
		}
		f.logger.Info("Using Redis party lock",
			zap.Duration("ttl", cfg.TTL),
			zap.Duration("wait_timeout", cfg.WaitTimeout))
		return NewRedisPartyLocker(f.client, RedisPartyLockerConfig{
			TTL:           cfg.TTL,
			RetryInterval: cfg.RetryInterval,
			WaitTimeout:   cfg.WaitTimeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
}

// IdempotencyStore returns the store selected by cfg.Backend.
// In-memory keys are not shared between instances.
func (f *Factory) IdempotencyStore(cfg config.IdempotencyConfig) (shared.IdempotencyStore, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		f.logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		if f.client == nil {
			return nil, fmt.Errorf("redis idempotency store requires a Redis client")
		}
		f.logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStore(f.client, ""), nil
	}
	return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Backend)
}
