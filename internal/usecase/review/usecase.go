// Package review is the reviewer-facing gateway: pending listings scoped by
// role, the decide operation driving the state machine and the store, and
// best-effort record comments.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"reviewflow/internal/domain/collab"
	"reviewflow/internal/domain/notification"
	"reviewflow/internal/domain/record"
	"reviewflow/internal/taskqueue"
	"reviewflow/pkg/id"
)

// Enqueuer hands side-effect tasks to the background queue.
type Enqueuer interface {
	Enqueue(t taskqueue.Task) error
}

type Gateway struct {
	records  record.Store
	comments record.CommentStore
	feed     notification.Feed
	queue    Enqueuer
	audit    collab.AuditSink
}

func NewGateway(records record.Store, comments record.CommentStore, feed notification.Feed,
	queue Enqueuer, audit collab.AuditSink) *Gateway {
	return &Gateway{records: records, comments: comments, feed: feed, queue: queue, audit: audit}
}

// ListPendingForTeamLeader returns active records awaiting the given team's
// leader, oldest submission first.
func (g *Gateway) ListPendingForTeamLeader(ctx context.Context, team string) ([]record.Record, error) {
	return g.listPending(ctx, func(rec record.Record) bool {
		return rec.Status == record.StatusPendingTeamLeader && rec.OwningTeam == team
	})
}

// ListPendingForAdmin returns active records awaiting an administrator,
// across all teams.
func (g *Gateway) ListPendingForAdmin(ctx context.Context) ([]record.Record, error) {
	return g.listPending(ctx, func(rec record.Record) bool {
		return rec.Status == record.StatusPendingAdmin
	})
}

func (g *Gateway) listPending(ctx context.Context, keep func(record.Record) bool) ([]record.Record, error) {
	active, err := g.records.Load(ctx, record.CollectionActiveQueue)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, 0, len(active))
	for _, rec := range active {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmissionDate.Before(out[j].SubmissionDate) })
	return out, nil
}

// Decide applies one reviewer decision. The collection lock serializes
// competing calls on the same file ID: the loser observes the already
// updated status and gets ErrInvalidTransition, never a silent overwrite.
// On success a notification for the owning user goes onto the task queue;
// its delivery never affects the committed transition.
func (g *Gateway) Decide(ctx context.Context, in DecideInput) (*DecisionDTO, error) {
	now := time.Now().UTC()
	target := record.TargetCollection(in.Role, in.Decision)

	var oldStatus record.Status
	var decided record.Record

	transform := func(rec *record.Record) error {
		oldStatus = rec.Status
		if _, err := record.Transition(rec, in.Role, in.Decision, in.Actor, in.Reason, in.RequestChanges, now); err != nil {
			return err
		}
		decided = *rec
		return nil
	}

	var err error
	if target == record.CollectionActiveQueue {
		err = g.records.Mutate(ctx, record.CollectionActiveQueue, func(m map[string]record.Record) error {
			rec, ok := m[in.FileID]
			if !ok {
				return record.ErrNotFound
			}
			if err := transform(&rec); err != nil {
				return err
			}
			m[in.FileID] = rec
			return nil
		})
	} else {
		err = g.records.Move(ctx, record.CollectionActiveQueue, target, in.FileID, transform)
	}
	if err != nil {
		if errors.Is(err, record.ErrNotFound) && g.alreadyArchived(ctx, in.FileID) {
			// lost a race: another reviewer archived it first
			return nil, fmt.Errorf("decide %s: %w", in.FileID, record.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("decide %s: %w", in.FileID, err)
	}

	if in.Reason != "" {
		// best-effort; a failed comment never fails the decision
		if cerr := g.comments.Append(ctx, in.FileID, record.Comment{
			Actor:     in.Actor,
			Comment:   in.Reason,
			Timestamp: now,
		}); cerr != nil {
			log.Printf("review: comment on %s dropped: %v", in.FileID, cerr)
		}
	}

	g.notifyOwner(decided, oldStatus, in, now)
	g.audit.Record(fmt.Sprintf("%s (%s) decided %s on %s: %s -> %s",
		in.Actor, in.Role, in.Decision, in.FileID, oldStatus, decided.Status))

	return &DecisionDTO{
		FileID:     in.FileID,
		Filename:   decided.OriginalFilename,
		OldStatus:  oldStatus,
		NewStatus:  decided.Status,
		Collection: target,
		DecidedAt:  now,
	}, nil
}

func (g *Gateway) alreadyArchived(ctx context.Context, fileID string) bool {
	for _, col := range []record.Collection{record.CollectionApprovedArchive, record.CollectionRejectedArchive} {
		archived, err := g.records.Load(ctx, col)
		if err != nil {
			continue
		}
		if _, ok := archived[fileID]; ok {
			return true
		}
	}
	return false
}

func (g *Gateway) notifyOwner(decided record.Record, oldStatus record.Status, in DecideInput, now time.Time) {
	n := notification.Notification{
		EventID:   id.NewID32(),
		Type:      notification.TypeStatusChange,
		Filename:  decided.OriginalFilename,
		OldStatus: oldStatus,
		NewStatus: decided.Status,
		Actor:     in.Actor,
		Comment:   in.Reason,
		Timestamp: now,
	}
	userID := decided.OwningUserID

	deliver := func(ctx context.Context) error {
		return g.feed.Append(ctx, userID, n)
	}
	if g.queue == nil {
		if err := deliver(context.Background()); err != nil {
			log.Printf("review: notification for %s dropped: %v", userID, err)
		}
		return
	}
	if err := g.queue.Enqueue(taskqueue.Task{ID: n.EventID, Kind: "notify", Run: deliver}); err != nil {
		log.Printf("review: notification for %s not enqueued: %v", userID, err)
	}
}

// AddComment appends to the comments collection, independent of the record's
// current status or location.
func (g *Gateway) AddComment(ctx context.Context, fileID, actor, text string) error {
	return g.comments.Append(ctx, fileID, record.Comment{
		Actor:     actor,
		Comment:   text,
		Timestamp: time.Now().UTC(),
	})
}

// ListComments returns a record's comments in the order they were added.
func (g *Gateway) ListComments(ctx context.Context, fileID string) ([]record.Comment, error) {
	return g.comments.List(ctx, fileID)
}
