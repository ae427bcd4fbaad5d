package keystore

import (
	"context"
	"errors"
	"sync"
)

// KeyName is the fixed name the basket access key is persisted under.
const KeyName = "userAccessKey"

var ErrKeyNotFound = errors.New("access key not found")

// AccessKeyStore persists the basket access key between runs.
type AccessKeyStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, key string) error
}

// MemoryStore keeps the key for the lifetime of the process
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.key == "" {
		return "", ErrKeyNotFound
	}
	return m.key, nil
}

func (m *MemoryStore) Set(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}
