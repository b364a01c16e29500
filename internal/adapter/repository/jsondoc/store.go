package jsondoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"reviewflow/internal/domain/record"
)

// Store keeps the three record collections plus the comments collection as
// JSON documents under a single directory.
type Store struct {
	dir   string
	locks *lockTable
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return &Store{dir: dir, locks: newLockTable()}, nil
}

func (s *Store) path(col record.Collection) string {
	return filepath.Join(s.dir, string(col)+".json")
}

func (s *Store) load(col record.Collection) map[string]record.Record {
	m := make(map[string]record.Record)
	_ = readDoc(s.path(col), &m)
	return m
}

// loadStrict backs the write paths: a snapshot that could not actually be
// read must never be written back as empty.
func (s *Store) loadStrict(col record.Collection) (map[string]record.Record, error) {
	m := make(map[string]record.Record)
	if err := readDocStrict(s.path(col), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) Load(ctx context.Context, col record.Collection) (map[string]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.locks.get(string(col))
	l.Lock()
	defer l.Unlock()
	return s.load(col), nil
}

func (s *Store) Mutate(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.locks.get(string(col))
	l.Lock()
	defer l.Unlock()

	m, err := s.loadStrict(col)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return writeDoc(s.path(col), m)
}

func (s *Store) Move(ctx context.Context, from, to record.Collection, fileID string, transform func(*record.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == to {
		return s.Mutate(ctx, from, func(m map[string]record.Record) error {
			rec, ok := m[fileID]
			if !ok {
				return record.ErrNotFound
			}
			if err := transform(&rec); err != nil {
				return err
			}
			m[fileID] = rec
			return nil
		})
	}

	// Both locks held for the whole move, acquired in a fixed order so two
	// opposing moves cannot deadlock.
	for _, l := range s.orderedLocks(from, to) {
		l.Lock()
		defer l.Unlock()
	}

	src, err := s.loadStrict(from)
	if err != nil {
		return err
	}
	rec, ok := src[fileID]
	if !ok {
		return record.ErrNotFound
	}
	if err := transform(&rec); err != nil {
		return err
	}
	dst, err := s.loadStrict(to)
	if err != nil {
		return err
	}
	dst[fileID] = rec
	delete(src, fileID)

	// Archive first: a crash between the two writes leaves the record
	// visible in both collections, never in neither.
	if err := writeDoc(s.path(to), dst); err != nil {
		return err
	}
	return writeDoc(s.path(from), src)
}

func (s *Store) orderedLocks(a, b record.Collection) []*sync.Mutex {
	names := []string{string(a), string(b)}
	sort.Strings(names)
	return []*sync.Mutex{s.locks.get(names[0]), s.locks.get(names[1])}
}

// --- comments collection ---

const commentsDoc = "comments"

func (s *Store) commentsPath() string {
	return filepath.Join(s.dir, commentsDoc+".json")
}

func (s *Store) Append(ctx context.Context, fileID string, c record.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.locks.get(commentsDoc)
	l.Lock()
	defer l.Unlock()

	m := make(map[string][]record.Comment)
	if err := readDocStrict(s.commentsPath(), &m); err != nil {
		return err
	}
	m[fileID] = append(m[fileID], c)
	return writeDoc(s.commentsPath(), m)
}

func (s *Store) List(ctx context.Context, fileID string) ([]record.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.locks.get(commentsDoc)
	l.Lock()
	defer l.Unlock()

	m := make(map[string][]record.Comment)
	_ = readDoc(s.commentsPath(), &m)
	return m[fileID], nil
}

var (
	_ record.Store        = (*Store)(nil)
	_ record.CommentStore = (*Store)(nil)
)
