package jsondoc

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"reviewflow/internal/domain/overlay"
	"reviewflow/internal/domain/record"
)

// OverlayStore keeps one overlay document per user, each under its own
// per-user lock so different submitters never contend.
type OverlayStore struct {
	dir   string
	locks *lockTable
}

func NewOverlayStore(dir string) (*OverlayStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return &OverlayStore{dir: dir, locks: newLockTable()}, nil
}

func (s *OverlayStore) path(userID string) string {
	return filepath.Join(s.dir, "overlay_"+url.PathEscape(userID)+".json")
}

func (s *OverlayStore) load(userID string) map[string]overlay.Entry {
	m := make(map[string]overlay.Entry)
	_ = readDoc(s.path(userID), &m)
	return m
}

func (s *OverlayStore) Load(ctx context.Context, userID string) (map[string]overlay.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.locks.get(userID)
	l.Lock()
	defer l.Unlock()
	return s.load(userID), nil
}

func (s *OverlayStore) Mutate(ctx context.Context, userID string, fn func(map[string]overlay.Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.locks.get(userID)
	l.Lock()
	defer l.Unlock()

	m := make(map[string]overlay.Entry)
	if err := readDocStrict(s.path(userID), &m); err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return writeDoc(s.path(userID), m)
}

var _ overlay.Store = (*OverlayStore)(nil)
