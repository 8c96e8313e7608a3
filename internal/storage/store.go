package storage

import (
	"context"
	"errors"
	"sync"
)

// Namespaced keys for the application's durable state. Every mutation of the
// in-memory state is flushed to its key as a single JSON document.
const (
	KeyQuestions   = "certmaster:questions"
	KeyFiles       = "certmaster:files"
	KeyCerts       = "certmaster:certs"
	KeyExamConfigs = "certmaster:exam_configs"
	KeyStats       = "certmaster:stats"
	KeyBookmarks   = "certmaster:bookmarks"
)

var ErrClosed = errors.New("store is closed")

// Store is the persistence contract: a durable key-value store holding one
// JSON document per namespaced key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryStore keeps documents in process memory. It is the default backend
// and the one the tests use.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
