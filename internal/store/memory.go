package store

import (
	"context"
	"sync"
	"time"

	"github.com/GrainHologram/SnipeScheduler-sub001/internal/clock"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store safe for concurrent use. Expired items
// are dropped lazily on access and swept periodically.
type MemoryStore struct {
	clock clock.Clock

	mu   sync.RWMutex
	data map[string]memoryItem

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewMemoryStore returns a MemoryStore with a background sweep of expired
// items.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	s := &MemoryStore{
		clock:     clk,
		data:      make(map[string]memoryItem),
		stopSweep: make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	item, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !item.expiresAt.IsZero() && s.clock.Now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return item.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = s.clock.Now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
	return nil
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			now := s.clock.Now()
			s.mu.Lock()
			for key, item := range s.data {
				if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
