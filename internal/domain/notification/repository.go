package notification

import "context"

// Feed is a per-user, most-recent-first notification feed capped at FeedCap
// entries. It persists independently of the record collections; its failures
// never roll back an already-committed state transition.
type Feed interface {
	// Append inserts at the head of the user's feed, dropping the oldest
	// entry past FeedCap. An event ID already present in the feed is
	// silently skipped.
	Append(ctx context.Context, userID string, n Notification) error

	// List returns the feed, most recent first.
	List(ctx context.Context, userID string) ([]Notification, error)

	// MarkRead flags the entry at the given feed index (0 = most recent).
	MarkRead(ctx context.Context, userID string, index int) error

	MarkAllRead(ctx context.Context, userID string) error

	UnreadCount(ctx context.Context, userID string) (int, error)
}
