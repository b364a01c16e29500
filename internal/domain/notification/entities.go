package notification

import (
	"time"

	"reviewflow/internal/domain/record"
)

// FeedCap is the maximum number of notifications kept per user; the oldest
// entries are dropped on overflow.
const FeedCap = 50

const TypeStatusChange = "status_change"

// Notification is one status-change event reported back to a submitter.
// EventID makes delivery idempotent: the feed skips an event it already holds,
// so at-least-once redelivery from the task queue cannot duplicate entries.
type Notification struct {
	EventID   string        `json:"event_id"`
	Type      string        `json:"type"`
	Filename  string        `json:"filename"`
	OldStatus record.Status `json:"old_status"`
	NewStatus record.Status `json:"new_status"`
	Actor     string        `json:"actor"`
	Comment   string        `json:"comment,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Read      bool          `json:"read"`
}
