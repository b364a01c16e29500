// Package jsondoc persists each collection as one JSON document on disk.
// Every document has its own named lock, and writes go through a temporary
// file followed by a rename, so a reader never observes a partial document.
package jsondoc

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"reviewflow/internal/domain/record"
)

// lockTable hands out one mutex per document name, created on first use.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (t *lockTable) get(name string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[name]
	if !ok {
		l = &sync.Mutex{}
		t.locks[name] = l
	}
	return l
}

// readDoc loads a document into v. A missing file leaves v untouched. Any
// other read failure is absorbed: logged, v untouched, nil returned, since
// the read path prefers an empty snapshot over failing the caller.
func readDoc(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("jsondoc: read %s: %v (treating as empty)", path, err)
		}
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.Printf("jsondoc: decode %s: %v (treating as empty)", path, err)
	}
	return nil
}

// readDocStrict is the write-path loader: unlike readDoc it refuses to turn
// an unreadable or undecodable document into an empty snapshot, because the
// caller is about to write that snapshot back. Only a missing file counts as
// empty; everything else fails the mutation so the bytes on disk survive.
func readDocStrict(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", record.ErrStorageUnavailable, path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", record.ErrStorageUnavailable, path, err)
	}
	return nil
}

// writeDoc atomically replaces path with the JSON encoding of v.
func writeDoc(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return nil
}
