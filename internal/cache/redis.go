package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// keyPrefix namespaces cache entries so ClearAll cannot touch unrelated keys
// in a shared Redis instance.
const keyPrefix = "seekrai:cache:"

// RedisStore keeps entries in Redis with a server-side TTL as a backstop on
// top of the envelope timestamp.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStore parses redisURL and verifies connectivity before returning.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string, target any) bool {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Timestamp.IsZero() {
		_ = s.client.Del(ctx, keyPrefix+key).Err()
		return false
	}
	if s.now().Sub(env.Timestamp) > s.ttl {
		_ = s.client.Del(ctx, keyPrefix+key).Err()
		return false
	}
	if err := json.Unmarshal(env.Response, target); err != nil {
		s.logger.Warn("cache entry payload mismatch", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal cache payload", zap.String("key", key), zap.Error(err))
		return
	}
	data, err := json.Marshal(envelope{Timestamp: s.now(), Response: raw})
	if err != nil {
		s.logger.Error("marshal cache envelope", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Error("write cache entry", zap.String("key", key), zap.Error(err))
	}
}

// PurgeExpired implements Store. Redis evicts via TTL on its own; this pass
// only reclaims entries whose envelope predates a TTL change.
func (s *RedisStore) PurgeExpired(ctx context.Context) (int, error) {
	removed := 0
	err := s.scan(ctx, func(fullKey string) {
		data, err := s.client.Get(ctx, fullKey).Bytes()
		if err != nil {
			return
		}
		var env envelope
		if json.Unmarshal(data, &env) != nil || env.Timestamp.IsZero() ||
			s.now().Sub(env.Timestamp) > s.ttl {
			if s.client.Del(ctx, fullKey).Err() == nil {
				removed++
			}
		}
	})
	return removed, err
}

// ClearAll implements Store.
func (s *RedisStore) ClearAll(ctx context.Context) (ClearStats, error) {
	var stats ClearStats
	err := s.scan(ctx, func(fullKey string) {
		size, _ := s.client.StrLen(ctx, fullKey).Result()
		if s.client.Del(ctx, fullKey).Err() == nil {
			stats.EntriesRemoved++
			stats.BytesFreed += size
		}
	})
	return stats, err
}

// Stats implements Store.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.scan(ctx, func(fullKey string) {
		size, err := s.client.StrLen(ctx, fullKey).Result()
		if err != nil {
			return
		}
		stats.EntryCount++
		stats.TotalSizeBytes += size
	})
	return stats, err
}

// Entries implements Store. The slice is non-nil even when empty so both
// backends render the same JSON shape.
func (s *RedisStore) Entries(ctx context.Context) ([]EntryInfo, error) {
	infos := make([]EntryInfo, 0)
	err := s.scan(ctx, func(fullKey string) {
		data, err := s.client.Get(ctx, fullKey).Bytes()
		if err != nil {
			return
		}
		info := EntryInfo{
			Key:       fullKey[len(keyPrefix):],
			SizeBytes: int64(len(data)),
		}
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			info.CreatedAt = env.Timestamp
			info.Expired = s.now().Sub(env.Timestamp) > s.ttl
		}
		infos = append(infos, info)
	})
	return infos, err
}

func (s *RedisStore) scan(ctx context.Context, fn func(fullKey string)) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		fn(iter.Val())
	}
	return iter.Err()
}
