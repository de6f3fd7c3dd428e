package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cache entries in Redis under "cache:<type>:<entity>"
// keys. Entries carry their own expiry so stale payloads are evicted by
// Redis rather than cleaned up by us.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(redisURL, password string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

type redisEntry struct {
	Payload   json.RawMessage `json:"payload"`
	FetchedAt int64           `json:"fetched_at"`
}

func redisKey(key Key) string {
	return "cache:" + key.DataType + ":" + key.Entity
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &Entry{
		Payload:   e.Payload,
		FetchedAt: time.Unix(e.FetchedAt, 0).UTC(),
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, payload []byte, fetchedAt time.Time) error {
	raw, err := json.Marshal(redisEntry{
		Payload:   payload,
		FetchedAt: fetchedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.rdb.Set(ctx, redisKey(key), raw, s.ttl).Err()
}
