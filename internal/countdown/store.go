package countdown

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each expiry as unix milliseconds with a matching TTL.
type RedisStore struct {
	Client *redis.Client
}

func (s *RedisStore) SetExpiry(ctx context.Context, key string, expiresAt time.Time, ttl time.Duration) error {
	return s.Client.Set(ctx, key, expiresAt.UnixMilli(), ttl).Err()
}

// SetExpiryIfIdle relies on the key TTL: an elapsed countdown is already
// gone, so SETNX succeeds.
func (s *RedisStore) SetExpiryIfIdle(ctx context.Context, key string, expiresAt, _ time.Time, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, expiresAt.UnixMilli(), ttl).Result()
}

func (s *RedisStore) GetExpiry(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt countdown value %q: %w", val, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// MemoryStore is a single-process Store. Entries are kept past their
// expiry; Countdown treats elapsed entries as zero.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expires: make(map[string]time.Time)}
}

func (s *MemoryStore) SetExpiry(_ context.Context, key string, expiresAt time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[key] = expiresAt
	return nil
}

func (s *MemoryStore) SetExpiryIfIdle(_ context.Context, key string, expiresAt, now time.Time, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.expires[key]; ok && current.After(now) {
		return false, nil
	}
	s.expires[key] = expiresAt
	return true, nil
}

func (s *MemoryStore) GetExpiry(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.expires[key]
	return t, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, key)
	return nil
}
