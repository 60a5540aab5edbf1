package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/s0up4200/marquee/tmdb"
)

const (
	// DefaultRedisKeyPrefix namespaces stored entries
	DefaultRedisKeyPrefix = "marquee:query:"

	// DefaultRedisTTL bounds how long a stored response is trusted
	DefaultRedisTTL = 6 * time.Hour
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379/0")
	URL string

	// KeyPrefix is prepended to every stored key
	KeyPrefix string

	// TTL is the expiry of stored values
	TTL time.Duration
}

// RedisStore implements Store on Redis so several processes, or a restarted
// one, can share resolved responses
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultRedisTTL
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) redisKey(key Key) string {
	return s.prefix + key.String()
}

// Load reads and decodes a stored response
func (s *RedisStore) Load(ctx context.Context, key Key) (any, bool, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get entry from redis: %w", err)
	}

	value, err := tmdb.Decode(key.Kind, data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode stored entry: %w", err)
	}

	return value, true, nil
}

// Save stores a resolved response
func (s *RedisStore) Save(ctx context.Context, key Key, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set entry in redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
