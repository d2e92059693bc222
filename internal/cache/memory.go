package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is the in-process Store used by tests and by the offline
// evaluation CLI, which has no redis at hand.
type MemoryStore struct {
	inner *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		inner: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.inner.Get(key); ok {
		return v.([]byte), nil
	}
	return nil, ErrMiss
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.inner.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.inner.Delete(key)
	}
	return nil
}
