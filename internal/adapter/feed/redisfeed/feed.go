// Package redisfeed backs the notification feed with redis lists: one list
// per user, newest at the head, trimmed to the feed cap on every append.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reviewflow/internal/domain/notification"
)

const keyPrefix = "reviewflow:feed:"

type Feed struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Feed { return &Feed{rdb: rdb} }

func key(userID string) string { return keyPrefix + userID }

func (f *Feed) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	raw, err := f.rdb.LRange(ctx, key(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]notification.Notification, 0, len(raw))
	for _, item := range raw {
		var n notification.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *Feed) Append(ctx context.Context, userID string, n notification.Notification) error {
	if n.EventID != "" {
		have, err := f.List(ctx, userID)
		if err != nil {
			return err
		}
		for _, item := range have {
			if item.EventID == n.EventID {
				return nil
			}
		}
	}
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := f.rdb.TxPipeline()
	pipe.LPush(ctx, key(userID), b)
	pipe.LTrim(ctx, key(userID), 0, notification.FeedCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (f *Feed) MarkRead(ctx context.Context, userID string, index int) error {
	raw, err := f.rdb.LIndex(ctx, key(userID), int64(index)).Result()
	if err == redis.Nil {
		return fmt.Errorf("notification index %d out of range", index)
	}
	if err != nil {
		return err
	}
	var n notification.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return err
	}
	n.Read = true
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return f.rdb.LSet(ctx, key(userID), int64(index), b).Err()
}

func (f *Feed) MarkAllRead(ctx context.Context, userID string) error {
	list, err := f.List(ctx, userID)
	if err != nil {
		return err
	}
	for i, n := range list {
		if n.Read {
			continue
		}
		n.Read = true
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := f.rdb.LSet(ctx, key(userID), int64(i), b).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Feed) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := f.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

var _ notification.Feed = (*Feed)(nil)
