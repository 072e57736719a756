package repository

import (
	"context"
	"sync"
)

// MemoryKVRepositoryImpl keeps values in process memory.
// Used for tests and for ephemeral deployments (STORE_BACKEND=memory).
type MemoryKVRepositoryImpl struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKVRepository creates an empty in-memory key-value repository
func NewMemoryKVRepository() *MemoryKVRepositoryImpl {
	return &MemoryKVRepositoryImpl{values: make(map[string][]byte)}
}

// Get returns nil, nil when the key has never been written
func (r *MemoryKVRepositoryImpl) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *MemoryKVRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	r.values[key] = stored
	return nil
}
