package repository

import (
	"context"
	"sync"
	"time"
)

// MockCache is an in-process CacheRepository. TTLs are ignored.
type MockCache struct {
	mu   sync.RWMutex
	Data map[string]string
	// ForceError makes every call fail, for exercising fallback paths.
	ForceError error
}

func NewMockCache() *MockCache {
	return &MockCache{
		Data: make(map[string]string),
	}
}

func (m *MockCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ForceError != nil {
		return "", false, m.ForceError
	}
	val, ok := m.Data[key]
	return val, ok, nil
}

func (m *MockCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ForceError != nil {
		return m.ForceError
	}
	m.Data[key] = value
	return nil
}
