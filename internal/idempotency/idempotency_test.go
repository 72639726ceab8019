package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickgpt/backend/internal/model"
)

// fakeRedis implements RedisClient over a map.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = toString(value)
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = toString(value)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		panic("unexpected value type")
	}
}

func stores() map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(time.Hour, time.Minute) },
		"redis":  func() Store { return NewRedisStore(newFakeRedis(), time.Hour, time.Minute) },
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	reply := &model.Message{Role: model.RoleAssistant, Content: "hello", Timestamp: time.Now().UTC().Truncate(time.Millisecond)}

	for name, newStore := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Run("First reservation wins, second sees in progress", func(t *testing.T) {
				s := newStore()
				got, err := s.Reserve(ctx, "k")
				require.NoError(t, err)
				assert.Nil(t, got)

				_, err = s.Reserve(ctx, "k")
				assert.ErrorIs(t, err, ErrInProgress)
			})

			t.Run("Completed key replays the reply", func(t *testing.T) {
				s := newStore()
				_, err := s.Reserve(ctx, "k")
				require.NoError(t, err)
				require.NoError(t, s.Complete(ctx, "k", reply))

				got, err := s.Reserve(ctx, "k")
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, reply.Content, got.Content)
				assert.Equal(t, reply.Role, got.Role)
				assert.True(t, reply.Timestamp.Equal(got.Timestamp))
			})

			t.Run("Released key can be reserved again", func(t *testing.T) {
				s := newStore()
				_, err := s.Reserve(ctx, "k")
				require.NoError(t, err)
				require.NoError(t, s.Release(ctx, "k"))

				got, err := s.Reserve(ctx, "k")
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("Keys are independent", func(t *testing.T) {
				s := newStore()
				_, err := s.Reserve(ctx, Key("u1", "c1", model.ModeText, "t"))
				require.NoError(t, err)

				got, err := s.Reserve(ctx, Key("u1", "c2", model.ModeText, "t"))
				require.NoError(t, err)
				assert.Nil(t, got)
			})
		})
	}
}

func TestMemoryStore_ConcurrentReserve(t *testing.T) {
	s := NewMemoryStore(time.Hour, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Reserve(context.Background(), "k"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestRedisStore_BackendError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	s := NewRedisStore(rdb, time.Hour, time.Minute)

	_, err := s.Reserve(context.Background(), "k")

	assert.ErrorContains(t, err, "could not reserve idempotency key")
	assert.NotErrorIs(t, err, ErrInProgress)
}

func TestKey(t *testing.T) {
	t.Run("Separators inside parts do not collide", func(t *testing.T) {
		assert.NotEqual(t,
			Key("u1", "c1", model.ModeText, "x:y"),
			Key("u1", "c1:x", model.ModeText, "y"))
		assert.NotEqual(t,
			Key("u1", "c1", model.ModeText, "ab"),
			Key("u1", "c1a", model.ModeText, "b"))
	})

	t.Run("Mode is part of the key", func(t *testing.T) {
		assert.NotEqual(t,
			Key("u1", "c1", model.ModeText, "k"),
			Key("u1", "c1", model.ModeImage, "k"))
	})

	t.Run("Stable for the same parts", func(t *testing.T) {
		assert.Equal(t,
			Key("u1", "c1", model.ModeText, "k"),
			Key("u1", "c1", model.ModeText, "k"))
	})
}

func TestMemoryStore_PendingReservationExpiresFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour, 20*time.Millisecond)

	_, err := s.Reserve(ctx, "crashed")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "done")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, "done", &model.Message{Role: model.RoleAssistant, Content: "kept"}))

	time.Sleep(50 * time.Millisecond)

	got, err := s.Reserve(ctx, "crashed")
	require.NoError(t, err, "an abandoned reservation must not block the key past its pending TTL")
	assert.Nil(t, got)

	got, err = s.Reserve(ctx, "done")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Content)
}

func TestRedisStore_ReserveShortCompleteLong(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	s := NewRedisStore(rdb, 24*time.Hour, 90*time.Second)

	_, err := s.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, rdb.ttls["idempotency:k"])

	require.NoError(t, s.Complete(ctx, "k", &model.Message{Role: model.RoleAssistant, Content: "hi"}))
	assert.Equal(t, 24*time.Hour, rdb.ttls["idempotency:k"])
}

func TestPendingTTLFallsBackToTTL(t *testing.T) {
	assert.Equal(t, time.Hour, pendingFor(time.Hour, 0))
	assert.Equal(t, time.Hour, pendingFor(time.Hour, 2*time.Hour))
	assert.Equal(t, time.Minute, pendingFor(time.Hour, time.Minute))
}
