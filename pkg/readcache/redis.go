package readcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// RedisCache is a Redis-backed Cache for deployments where history reads
// are served by more than one process.
type RedisCache struct {
	client rueidis.Client
	config RedisConfig
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Name         string
	Addr         string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "ledger:read:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("readcache: redis address not configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("readcache: failed to create redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("readcache: failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, config: config}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(r.config.KeyPrefix + key).Build()
	resp := r.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("readcache: redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("readcache: redis get: failed to read response: %w", err)
	}
	return data, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(string(value)).Ex(ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("readcache: redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.config.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("readcache: redis delete: %w", err)
	}
	return nil
}

func (r *RedisCache) Name() string {
	return r.config.Name
}

func (r *RedisCache) Close() error {
	r.client.Close()
	return nil
}

var _ Cache = (*RedisCache)(nil)
