// Package overlaymock provides a function-backed mock and an in-memory
// implementation of the per-user overlay store.
package overlaymock

import (
	"context"
	"sync"

	"reviewflow/internal/domain/overlay"
)

type Store struct {
	LoadFn   func(ctx context.Context, userID string) (map[string]overlay.Entry, error)
	MutateFn func(ctx context.Context, userID string, fn func(map[string]overlay.Entry) error) error
}

func (m *Store) Load(ctx context.Context, userID string) (map[string]overlay.Entry, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, userID)
	}
	return map[string]overlay.Entry{}, nil
}

func (m *Store) Mutate(ctx context.Context, userID string, fn func(map[string]overlay.Entry) error) error {
	if m.MutateFn != nil {
		return m.MutateFn(ctx, userID, fn)
	}
	return fn(map[string]overlay.Entry{})
}

// MemStore keeps real per-user overlay state in memory.
type MemStore struct {
	mu    sync.Mutex
	users map[string]map[string]overlay.Entry
}

func NewMemStore() *MemStore {
	return &MemStore{users: make(map[string]map[string]overlay.Entry)}
}

func (m *MemStore) user(id string) map[string]overlay.Entry {
	if m.users[id] == nil {
		m.users[id] = make(map[string]overlay.Entry)
	}
	return m.users[id]
}

func (m *MemStore) Load(ctx context.Context, userID string) (map[string]overlay.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]overlay.Entry, len(m.user(userID)))
	for k, v := range m.user(userID) {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) Mutate(ctx context.Context, userID string, fn func(map[string]overlay.Entry) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.user(userID))
}
