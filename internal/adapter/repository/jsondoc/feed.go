package jsondoc

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"reviewflow/internal/domain/notification"
	"reviewflow/internal/domain/record"
)

// Feed is the file-backed notification feed: one document per user holding a
// most-recent-first list capped at notification.FeedCap.
type Feed struct {
	dir   string
	locks *lockTable
}

func NewFeed(dir string) (*Feed, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", record.ErrStorageUnavailable, err)
	}
	return &Feed{dir: dir, locks: newLockTable()}, nil
}

func (f *Feed) path(userID string) string {
	return filepath.Join(f.dir, "notifications_"+url.PathEscape(userID)+".json")
}

func (f *Feed) mutate(ctx context.Context, userID string, fn func([]notification.Notification) ([]notification.Notification, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := f.locks.get(userID)
	l.Lock()
	defer l.Unlock()

	var list []notification.Notification
	if err := readDocStrict(f.path(userID), &list); err != nil {
		return err
	}
	out, err := fn(list)
	if err != nil {
		return err
	}
	return writeDoc(f.path(userID), out)
}

func (f *Feed) Append(ctx context.Context, userID string, n notification.Notification) error {
	return f.mutate(ctx, userID, func(list []notification.Notification) ([]notification.Notification, error) {
		for _, have := range list {
			if have.EventID != "" && have.EventID == n.EventID {
				// redelivery of an event we already hold
				return list, nil
			}
		}
		list = append([]notification.Notification{n}, list...)
		if len(list) > notification.FeedCap {
			list = list[:notification.FeedCap]
		}
		return list, nil
	})
}

func (f *Feed) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := f.locks.get(userID)
	l.Lock()
	defer l.Unlock()

	var list []notification.Notification
	_ = readDoc(f.path(userID), &list)
	return list, nil
}

func (f *Feed) MarkRead(ctx context.Context, userID string, index int) error {
	return f.mutate(ctx, userID, func(list []notification.Notification) ([]notification.Notification, error) {
		if index < 0 || index >= len(list) {
			return nil, fmt.Errorf("notification index %d out of range", index)
		}
		list[index].Read = true
		return list, nil
	})
}

func (f *Feed) MarkAllRead(ctx context.Context, userID string) error {
	return f.mutate(ctx, userID, func(list []notification.Notification) ([]notification.Notification, error) {
		for i := range list {
			list[i].Read = true
		}
		return list, nil
	})
}

func (f *Feed) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := f.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n, nil
}

var _ notification.Feed = (*Feed)(nil)
