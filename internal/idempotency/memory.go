package idempotency

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"quickgpt/backend/internal/model"
)

type entry struct {
	reply *model.Message
}

type memoryStore struct {
	cache   *cache.Cache
	ttl     time.Duration
	pending time.Duration
}

// NewMemoryStore returns a process-local Store. Reservations expire after
// pendingTTL so a crashed submission frees its key; completed replies are
// kept for ttl.
func NewMemoryStore(ttl, pendingTTL time.Duration) Store {
	return &memoryStore{
		cache:   cache.New(ttl, 10*time.Minute),
		ttl:     ttl,
		pending: pendingFor(ttl, pendingTTL),
	}
}

func (s *memoryStore) Reserve(ctx context.Context, key string) (*model.Message, error) {
	// Add fails when the key exists, which gives an atomic reservation.
	if err := s.cache.Add(key, entry{}, s.pending); err == nil {
		return nil, nil
	}
	x, found := s.cache.Get(key)
	if !found {
		// Expired between Add and Get.
		if err := s.cache.Add(key, entry{}, s.pending); err == nil {
			return nil, nil
		}
		return nil, ErrInProgress
	}
	e := x.(entry)
	if e.reply == nil {
		return nil, ErrInProgress
	}
	reply := *e.reply
	return &reply, nil
}

func (s *memoryStore) Complete(ctx context.Context, key string, reply *model.Message) error {
	stored := *reply
	s.cache.Set(key, entry{reply: &stored}, s.ttl)
	return nil
}

func (s *memoryStore) Release(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
