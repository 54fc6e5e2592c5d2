package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/checkout/internal/application/checkout"
)

const defaultKeyPrefix = "checkout:handoff:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisHandoffStore keeps payment handoffs in Redis so any BFF instance can
// serve the payment screen
type RedisHandoffStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisHandoffStore connects to Redis and verifies the connection
func NewRedisHandoffStore(cfg RedisConfig) (*RedisHandoffStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisHandoffStoreWithClient(client, ""), nil
}

// NewRedisHandoffStoreWithClient creates a store on an existing client
func NewRedisHandoffStoreWithClient(client *redis.Client, keyPrefix string) *RedisHandoffStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisHandoffStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Save stores h under its token for ttl. An existing token is never
// overwritten: handoffs are immutable.
func (s *RedisHandoffStore) Save(ctx context.Context, h *checkout.Handoff, ttl time.Duration) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode handoff: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+h.Token, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save handoff: %w", err)
	}
	if !ok {
		return fmt.Errorf("handoff %s already exists", h.Token)
	}
	return nil
}

// Load returns the handoff for token, or checkout.ErrHandoffNotFound
func (s *RedisHandoffStore) Load(ctx context.Context, token string) (*checkout.Handoff, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrHandoffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load handoff: %w", err)
	}

	var h checkout.Handoff
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode handoff: %w", err)
	}
	return &h, nil
}

// Close closes the Redis client
func (s *RedisHandoffStore) Close() error {
	return s.client.Close()
}

var _ checkout.HandoffStore = (*RedisHandoffStore)(nil)
