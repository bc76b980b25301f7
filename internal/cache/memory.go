package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend implements Backend using sync.Map
type MemoryBackend struct {
	data            sync.Map
	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryBackend creates a new in-memory cache with a background
// janitor removing expired entries.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	m := &MemoryBackend{
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := m.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.data.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data.Store(key, &memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (m *MemoryBackend) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	entry := &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	prev, loaded := m.data.LoadOrStore(key, entry)
	if !loaded {
		return true, nil
	}
	if time.Now().After(prev.(*memoryEntry).expiresAt) {
		// Expired entry still present; replace it.
		m.data.Store(key, entry)
		return true, nil
	}
	return false, nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *MemoryBackend) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.data.Range(func(key, val any) bool {
				if now.After(val.(*memoryEntry).expiresAt) {
					m.data.Delete(key)
				}
				return true
			})
		case <-m.stopCh:
			return
		}
	}
}
