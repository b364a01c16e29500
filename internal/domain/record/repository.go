package record

import "context"

// Store is durable, lock-guarded access to the three record collections.
//
// Implementations guard each collection with its own named exclusive lock so
// unrelated collections never contend, and persist each collection as a whole
// document atomically (a reader never observes a partially written snapshot).
type Store interface {
	// Load returns the current snapshot of a collection. An I/O failure on
	// the read path is absorbed: the call logs and returns an empty mapping
	// rather than failing the caller.
	Load(ctx context.Context, col Collection) (map[string]Record, error)

	// Mutate acquires the collection's lock, loads the snapshot, applies fn,
	// and persists the result atomically. If fn returns an error nothing is
	// written. A write failure surfaces as ErrStorageUnavailable with no
	// partial state visible.
	Mutate(ctx context.Context, col Collection, fn func(map[string]Record) error) error

	// Move relocates one record between collections while holding both
	// collections' locks, so no observer can see the record in neither or
	// both. transform runs on the record before it lands in `to`; if it
	// returns an error the move is abandoned with no mutation. A missing
	// fileID yields ErrNotFound.
	Move(ctx context.Context, from, to Collection, fileID string, transform func(*Record) error) error
}

// CommentStore is the comments collection: per file ID, an ordered list of
// reviewer comments independent of the record's status.
type CommentStore interface {
	Append(ctx context.Context, fileID string, c Comment) error
	List(ctx context.Context, fileID string) ([]Comment, error)
}
