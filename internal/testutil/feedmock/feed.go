// Package feedmock is an in-memory notification feed for tests.
package feedmock

import (
	"context"
	"fmt"
	"sync"

	"reviewflow/internal/domain/notification"
)

type Feed struct {
	mu    sync.Mutex
	feeds map[string][]notification.Notification

	// AppendErr, when set, makes every Append fail (simulates a feed outage).
	AppendErr error
}

func New() *Feed {
	return &Feed{feeds: make(map[string][]notification.Notification)}
}

func (f *Feed) Append(ctx context.Context, userID string, n notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AppendErr != nil {
		return f.AppendErr
	}
	for _, have := range f.feeds[userID] {
		if have.EventID != "" && have.EventID == n.EventID {
			return nil
		}
	}
	f.feeds[userID] = append([]notification.Notification{n}, f.feeds[userID]...)
	if len(f.feeds[userID]) > notification.FeedCap {
		f.feeds[userID] = f.feeds[userID][:notification.FeedCap]
	}
	return nil
}

func (f *Feed) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Notification(nil), f.feeds[userID]...), nil
}

func (f *Feed) MarkRead(ctx context.Context, userID string, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.feeds[userID]) {
		return fmt.Errorf("notification index %d out of range", index)
	}
	f.feeds[userID][index].Read = true
	return nil
}

func (f *Feed) MarkAllRead(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.feeds[userID] {
		f.feeds[userID][i].Read = true
	}
	return nil
}

func (f *Feed) UnreadCount(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, item := range f.feeds[userID] {
		if !item.Read {
			n++
		}
	}
	return n, nil
}
