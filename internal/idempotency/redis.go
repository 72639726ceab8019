package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quickgpt/backend/internal/model"
)

const pendingMarker = "pending"

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisStore struct {
	rdb     RedisClient
	ttl     time.Duration
	pending time.Duration
}

// NewRedisStore returns a Store shared by every backend instance that uses rdb.
// Reservations live for pendingTTL and completed replies for ttl.
func NewRedisStore(rdb RedisClient, ttl, pendingTTL time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl, pending: pendingFor(ttl, pendingTTL)}
}

func (s *redisStore) key(key string) string { return fmt.Sprintf("idempotency:%s", key) }

func (s *redisStore) Reserve(ctx context.Context, key string) (*model.Message, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, s.key(key), pendingMarker, s.pending).Result()
		if err != nil {
			return nil, fmt.Errorf("could not reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}

		val, err := s.rdb.Get(ctx, s.key(key)).Result()
		if errors.Is(err, redis.Nil) {
			// Expired or released in between; try to claim it again.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not read idempotency key: %w", err)
		}
		if val == pendingMarker {
			return nil, ErrInProgress
		}
		var reply model.Message
		if err := json.Unmarshal([]byte(val), &reply); err != nil {
			return nil, fmt.Errorf("could not decode stored reply: %w", err)
		}
		return &reply, nil
	}
	return nil, ErrInProgress
}

func (s *redisStore) Complete(ctx context.Context, key string, reply *model.Message) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("could not encode reply: %w", err)
	}
	return s.rdb.Set(ctx, s.key(key), data, s.ttl).Err()
}

func (s *redisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
