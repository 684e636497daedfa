package bitsvg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store is a durable, content addressed backing store for traced outlines.
// Keys are the hex SHA-256 digests computed by the TraceCache.
type Store interface {
	// Get returns the stored polylines and true, or false on a miss.
	Get(ctx context.Context, key string) ([]Polyline, bool, error)
	Put(ctx context.Context, key string, pls []Polyline) error
}

const traceKeyPrefix = "trace:"

// RedisStore keeps traced outlines in Redis as JSON values.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps entries forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// DialRedis creates a client for the given connection settings.
func DialRedis(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStore(client, cfg.TTL)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]Polyline, bool, error) {
	data, err := s.client.Get(ctx, traceKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var pls []Polyline
	if err := json.Unmarshal(data, &pls); err != nil {
		return nil, false, errors.Wrapf(err, "decoding stored trace %s", key)
	}
	return pls, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, pls []Polyline) error {
	data, err := json.Marshal(pls)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, traceKeyPrefix+key, data, s.ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
