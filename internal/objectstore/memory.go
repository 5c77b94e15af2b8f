package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoObject is returned by [MemoryStore.Download] for unknown keys.
var ErrNoObject = errors.New("no such object")

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory [Store] for tests and local development.
// Safe for concurrent use.
type MemoryStore struct {
	signer *URLSigner

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore. signer may be nil, in which
// case SignedURL returns an unsigned placeholder URL.
func NewMemoryStore(signer *URLSigner) *MemoryStore {
	return &MemoryStore{
		signer:  signer,
		objects: make(map[string][]byte),
	}
}

// Upload implements [Store].
func (m *MemoryStore) Upload(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.objects[key] = buf
	return nil
}

// Download implements [Store].
func (m *MemoryStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object store: %q: %w", key, ErrNoObject)
	}
	return data, nil
}

// SignedURL implements [Store].
func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if m.signer == nil {
		return "memory:///" + key, nil
	}
	return m.signer.Sign(key, ttl), nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
