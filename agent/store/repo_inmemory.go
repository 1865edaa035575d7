package store

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryRepo is an in-memory implementation of Repo, used in tests and as
// a fallback when no store file is configured.
type InMemoryRepo struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{values: make(map[string][]byte)}
}

func (r *InMemoryRepo) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored value.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (r *InMemoryRepo) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	r.values[key] = stored
	return nil
}

func (r *InMemoryRepo) Remove(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.values, key) // absent key is not an error
	return nil
}
