// Package sqlite is the embedded-database record store. It honors the same
// contract as the jsondoc store: per-collection named locks serialize
// mutation, and every Mutate/Move commits as one transaction so a reader
// never observes a partial snapshot.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"reviewflow/internal/domain/record"
	infradb "reviewflow/internal/infrastructure/db"
)

type recordRow struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Collection string    `gorm:"column:collection;size:32;not null;uniqueIndex:ux_records_collection_file,priority:1"`
	FileID     string    `gorm:"column:file_id;size:64;not null;uniqueIndex:ux_records_collection_file,priority:2"`
	OwnerID    string    `gorm:"column:owner_id;size:64;index"`
	Payload    []byte    `gorm:"column:payload;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (recordRow) TableName() string { return "approval_records" }

type commentRow struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	FileID    string    `gorm:"column:file_id;size:64;not null;index"`
	Actor     string    `gorm:"column:actor;size:64;not null"`
	Comment   string    `gorm:"column:comment;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (commentRow) TableName() string { return "approval_comments" }

type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func Open(path string) (*Store, error) {
	gdb, err := infradb.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	if err := gdb.AutoMigrate(&recordRow{}, &commentRow{}); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return &Store{db: gdb, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *Store) loadTx(tx *gorm.DB, col record.Collection) (map[string]record.Record, error) {
	var rows []recordRow
	if err := tx.Where("collection = ?", string(col)).Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]record.Record, len(rows))
	for _, row := range rows {
		var rec record.Record
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			// a row we cannot decode is dropped from the snapshot
			continue
		}
		m[row.FileID] = rec
	}
	return m, nil
}

func (s *Store) Load(ctx context.Context, col record.Collection) (map[string]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := s.loadTx(s.db.WithContext(ctx), col)
	if err != nil {
		// read-path availability over strict correctness
		return make(map[string]record.Record), nil
	}
	return m, nil
}

func (s *Store) Mutate(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.lock(string(col))
	l.Lock()
	defer l.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.loadTx(tx, col)
		if err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}
		if err := fn(m); err != nil {
			return err
		}
		return s.replaceTx(tx, col, m)
	})
	return err
}

// replaceTx rewrites a collection's rows from the in-memory snapshot.
func (s *Store) replaceTx(tx *gorm.DB, col record.Collection, m map[string]record.Record) error {
	if err := tx.Where("collection = ?", string(col)).Delete(&recordRow{}).Error; err != nil {
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	for fileID, rec := range m {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}
		row := recordRow{
			Collection: string(col),
			FileID:     fileID,
			OwnerID:    rec.OwningUserID,
			Payload:    payload,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}
	}
	return nil
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

	names := []string{string(from), string(to)}
	sort.Strings(names)
	for _, name := range names {
		l := s.lock(name)
		l.Lock()
		defer l.Unlock()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row recordRow
		err := tx.Where("collection = ? AND file_id = ?", string(from), fileID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}

		var rec record.Record
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}
		if err := transform(&rec); err != nil {
			return err
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}

		row.Collection = string(to)
		row.OwnerID = rec.OwningUserID
		row.Payload = payload
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
		}
		return nil
	})
}

// --- comments collection ---

func (s *Store) Append(ctx context.Context, fileID string, c record.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row := commentRow{FileID: fileID, Actor: c.Actor, Comment: c.Comment, CreatedAt: c.Timestamp}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, fileID string) ([]record.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []commentRow
	if err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	out := make([]record.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, record.Comment{Actor: row.Actor, Comment: row.Comment, Timestamp: row.CreatedAt})
	}
	return out, nil
}

var (
	_ record.Store        = (*Store)(nil)
	_ record.CommentStore = (*Store)(nil)
)
