// Package storemock provides function-backed mocks for the record store and
// comment store. Only the mutators a test assigns are exercised; unassigned
// hooks behave as an empty, always-succeeding store.
package storemock

import (
	"context"
	"sync"

	"reviewflow/internal/domain/record"
)

type Store struct {
	LoadFn   func(ctx context.Context, col record.Collection) (map[string]record.Record, error)
	MutateFn func(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error
	MoveFn   func(ctx context.Context, from, to record.Collection, fileID string, transform func(*record.Record) error) error
}

func (m *Store) Load(ctx context.Context, col record.Collection) (map[string]record.Record, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx, col)
	}
	return map[string]record.Record{}, nil
}

func (m *Store) Mutate(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error {
	if m.MutateFn != nil {
		return m.MutateFn(ctx, col, fn)
	}
	return fn(map[string]record.Record{})
}

func (m *Store) Move(ctx context.Context, from, to record.Collection, fileID string, transform func(*record.Record) error) error {
	if m.MoveFn != nil {
		return m.MoveFn(ctx, from, to, fileID, transform)
	}
	return record.ErrNotFound
}

// MemStore is an in-memory record.Store honoring the full contract, for
// tests that want real state without touching disk.
type MemStore struct {
	mu       sync.Mutex
	cols     map[record.Collection]map[string]record.Record
	comments map[string][]record.Comment
}

func NewMemStore() *MemStore {
	return &MemStore{
		cols:     make(map[record.Collection]map[string]record.Record),
		comments: make(map[string][]record.Comment),
	}
}

func (m *MemStore) col(c record.Collection) map[string]record.Record {
	if m.cols[c] == nil {
		m.cols[c] = make(map[string]record.Record)
	}
	return m.cols[c]
}

func (m *MemStore) Load(ctx context.Context, c record.Collection) (map[string]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]record.Record, len(m.col(c)))
	for k, v := range m.col(c) {
		out[k] = v
	}
	return out, nil
}

func (m *MemStore) Mutate(ctx context.Context, c record.Collection, fn func(map[string]record.Record) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.col(c))
}

func (m *MemStore) Move(ctx context.Context, from, to record.Collection, fileID string, transform func(*record.Record) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.col(from)[fileID]
	if !ok {
		return record.ErrNotFound
	}
	if err := transform(&rec); err != nil {
		return err
	}
	m.col(to)[fileID] = rec
	delete(m.col(from), fileID)
	return nil
}

func (m *MemStore) Append(ctx context.Context, fileID string, c record.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[fileID] = append(m.comments[fileID], c)
	return nil
}

func (m *MemStore) List(ctx context.Context, fileID string) ([]record.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]record.Comment(nil), m.comments[fileID]...), nil
}
