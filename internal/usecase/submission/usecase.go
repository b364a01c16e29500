// Package submission is the user-facing gateway: submit, withdraw, resubmit,
// and list-my-submissions, reconciling the per-user overlay with the
// canonical record collections.
package submission

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"reviewflow/internal/domain/collab"
	"reviewflow/internal/domain/overlay"
	"reviewflow/internal/domain/record"
	"reviewflow/pkg/id"
)

type Gateway struct {
	records     record.Store
	comments    record.CommentStore
	overlays    overlay.Store
	files       collab.FileOracle
	directory   collab.TeamDirectory
	audit       collab.AuditSink
	defaultTeam string
}

func NewGateway(records record.Store, comments record.CommentStore, overlays overlay.Store,
	files collab.FileOracle, directory collab.TeamDirectory, audit collab.AuditSink, defaultTeam string) *Gateway {
	return &Gateway{
		records:     records,
		comments:    comments,
		overlays:    overlays,
		files:       files,
		directory:   directory,
		audit:       audit,
		defaultTeam: defaultTeam,
	}
}

// teamOf resolves the user's team, falling back to the configured default
// when the directory is unreachable. An unreachable directory never blocks a
// submission.
func (g *Gateway) teamOf(ctx context.Context, userID string) string {
	team, err := g.directory.TeamOf(ctx, userID)
	if err != nil {
		g.audit.Record(fmt.Sprintf("team lookup failed for %s, using default %s: %v", userID, g.defaultTeam, err))
		return g.defaultTeam
	}
	return team
}

// Submit validates the file, allocates a fresh file ID, writes the overlay
// entry, then the ActiveQueue entry. The overlay is written first so the
// submitter's next local read already sees the pending status; the canonical
// write is the one that can still fail.
func (g *Gateway) Submit(ctx context.Context, in SubmitInput) (*SubmissionDTO, error) {
	size, err := g.files.Stat(ctx, in.Path)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", in.Path, err)
	}
	filename := filepath.Base(in.Path)

	if err := g.ensureNoActiveRecord(ctx, in.UserID, filename); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	fileID := id.NewID32()
	first := record.HistoryEntry{
		Status:    record.StatusPendingTeamLeader,
		Timestamp: now,
		Actor:     in.UserID,
		Comment:   "submitted for approval",
	}

	// remember the pre-submit overlay entry so a failed canonical write can
	// put it back exactly as it was
	var prior overlay.Entry
	var hadPrior bool
	if err := g.overlays.Mutate(ctx, in.UserID, func(m map[string]overlay.Entry) error {
		prior, hadPrior = m[filename]
		entry := prior
		entry.FileID = fileID
		entry.Status = record.StatusPendingTeamLeader
		entry.SubmittedForApproval = true
		entry.StatusHistory = append(append([]record.HistoryEntry(nil), prior.StatusHistory...), first)
		m[filename] = entry
		return nil
	}); err != nil {
		return nil, err
	}

	rec := record.Record{
		FileID:           fileID,
		OriginalFilename: filename,
		OwningUserID:     in.UserID,
		OwningTeam:       g.teamOf(ctx, in.UserID),
		FileSize:         size,
		Description:      in.Description,
		Tags:             append([]string(nil), in.Tags...),
		Status:           record.StatusPendingTeamLeader,
		SubmissionDate:   now,
		WorkflowHistory:  []record.HistoryEntry{first},
	}

	err = g.records.Mutate(ctx, record.CollectionActiveQueue, func(m map[string]record.Record) error {
		// re-check under the collection lock; the pre-check above ran
		// without it
		for _, have := range m {
			if have.OwningUserID == in.UserID && have.OriginalFilename == filename {
				return record.ErrDuplicateSubmission
			}
		}
		m[fileID] = rec
		return nil
	})
	if err != nil {
		// unwind the optimistic overlay write: restore the pre-submit entry
		// verbatim (it may belong to a concurrent winner's active record)
		_ = g.overlays.Mutate(ctx, in.UserID, func(m map[string]overlay.Entry) error {
			if entry, ok := m[filename]; !ok || entry.FileID != fileID {
				// someone else rewrote it since; leave their entry alone
				return nil
			}
			if hadPrior {
				m[filename] = prior
			} else {
				delete(m, filename)
			}
			return nil
		})
		return nil, err
	}

	g.audit.Record(fmt.Sprintf("%s submitted %s (%s) for team %s", in.UserID, filename, fileID, rec.OwningTeam))
	return &SubmissionDTO{
		Filename:             filename,
		FileID:               fileID,
		Status:               record.StatusPendingTeamLeader,
		SubmittedForApproval: true,
		StatusHistory:        []record.HistoryEntry{first},
	}, nil
}

func (g *Gateway) ensureNoActiveRecord(ctx context.Context, userID, filename string) error {
	active, err := g.records.Load(ctx, record.CollectionActiveQueue)
	if err != nil {
		return err
	}
	for _, rec := range active {
		if rec.OwningUserID == userID && rec.OriginalFilename == filename {
			return fmt.Errorf("%s already awaiting review: %w", filename, record.ErrDuplicateSubmission)
		}
	}
	return nil
}

// Withdraw removes the user's pending record from the active queue and
// resets the overlay entry to "not submitted". Legal only while the record
// awaits a decision.
func (g *Gateway) Withdraw(ctx context.Context, userID, filename string) error {
	var withdrawnID string
	err := g.records.Mutate(ctx, record.CollectionActiveQueue, func(m map[string]record.Record) error {
		for fid, rec := range m {
			if rec.OwningUserID != userID || rec.OriginalFilename != filename {
				continue
			}
			if !rec.Status.Pending() {
				return record.ErrInvalidTransition
			}
			withdrawnID = fid
			delete(m, fid)
			return nil
		}
		return record.ErrNotFound
	})
	if err != nil {
		return fmt.Errorf("withdraw %s: %w", filename, err)
	}

	now := time.Now().UTC()
	if err := g.overlays.Mutate(ctx, userID, func(m map[string]overlay.Entry) error {
		entry := m[filename]
		entry.SubmittedForApproval = false
		entry.Status = record.StatusWithdrawn
		entry.FileID = ""
		entry.StatusHistory = append(entry.StatusHistory, record.HistoryEntry{
			Status:    record.StatusWithdrawn,
			Timestamp: now,
			Actor:     userID,
		})
		m[filename] = entry
		return nil
	}); err != nil {
		return err
	}

	g.audit.Record(fmt.Sprintf("%s withdrew %s (%s)", userID, filename, withdrawnID))
	return nil
}

// Resubmit supersedes a rejected or changes-requested record with a brand
// new submission. The archived record keeps its old file ID for audit.
func (g *Gateway) Resubmit(ctx context.Context, in SubmitInput) (*SubmissionDTO, error) {
	filename := filepath.Base(in.Path)
	status, _, found, err := g.currentStatus(ctx, in.UserID, filename)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("resubmit %s: %w", filename, record.ErrNotFound)
	}
	if !status.Resubmittable() {
		return nil, fmt.Errorf("resubmit %s from %s: %w", filename, status, record.ErrInvalidTransition)
	}
	return g.Submit(ctx, in)
}

// currentStatus returns the best-known status for a filename: an active
// record wins, then the most recent archived record, then the overlay.
func (g *Gateway) currentStatus(ctx context.Context, userID, filename string) (record.Status, string, bool, error) {
	active, err := g.records.Load(ctx, record.CollectionActiveQueue)
	if err != nil {
		return "", "", false, err
	}
	for fid, rec := range active {
		if rec.OwningUserID == userID && rec.OriginalFilename == filename {
			return rec.Status, fid, true, nil
		}
	}

	var best *record.Record
	for _, col := range []record.Collection{record.CollectionApprovedArchive, record.CollectionRejectedArchive} {
		archived, err := g.records.Load(ctx, col)
		if err != nil {
			return "", "", false, err
		}
		for _, rec := range archived {
			if rec.OwningUserID != userID || rec.OriginalFilename != filename {
				continue
			}
			rec := rec
			if best == nil || rec.SubmissionDate.After(best.SubmissionDate) {
				best = &rec
			}
		}
	}
	if best != nil {
		return best.Status, best.FileID, true, nil
	}

	ov, err := g.overlays.Load(ctx, userID)
	if err != nil {
		return "", "", false, err
	}
	if entry, ok := ov[filename]; ok && entry.Status != "" {
		return entry.Status, entry.FileID, true, nil
	}
	return "", "", false, nil
}

// List returns the user's submissions, merging the overlay with the
// canonical collections. Canonical records missing from the overlay are
// reconciled back into it rather than surfaced as an inconsistency.
func (g *Gateway) List(ctx context.Context, userID string) ([]SubmissionDTO, error) {
	ov, err := g.overlays.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	type canonical struct {
		rec    record.Record
		active bool
	}
	best := make(map[string]canonical)
	for _, col := range []record.Collection{record.CollectionActiveQueue, record.CollectionApprovedArchive, record.CollectionRejectedArchive} {
		snapshot, err := g.records.Load(ctx, col)
		if err != nil {
			return nil, err
		}
		isActive := col == record.CollectionActiveQueue
		for _, rec := range snapshot {
			if rec.OwningUserID != userID {
				continue
			}
			have, ok := best[rec.OriginalFilename]
			// an active record always wins; otherwise the newest submission
			if ok && (have.active || (!isActive && have.rec.SubmissionDate.After(rec.SubmissionDate))) {
				continue
			}
			best[rec.OriginalFilename] = canonical{rec: rec, active: isActive}
		}
	}

	out := make([]SubmissionDTO, 0, len(best)+len(ov))
	healed := make(map[string]overlay.Entry)

	for filename, c := range best {
		comments := g.commentLines(ctx, c.rec.FileID)
		dto := SubmissionDTO{
			Filename:             filename,
			FileID:               c.rec.FileID,
			Status:               c.rec.Status,
			SubmittedForApproval: c.active,
			AdminComments:        comments,
			StatusHistory:        c.rec.WorkflowHistory,
		}
		out = append(out, dto)

		entry, ok := ov[filename]
		if !ok || entry.FileID != c.rec.FileID || entry.Status != c.rec.Status {
			healed[filename] = overlay.Entry{
				FileID:               c.rec.FileID,
				Status:               c.rec.Status,
				SubmittedForApproval: c.active,
				AdminComments:        comments,
				StatusHistory:        c.rec.WorkflowHistory,
			}
		}
	}

	// overlay-only entries (withdrawn files, submissions the canonical read
	// could not see) are surfaced as the overlay remembers them
	for filename, entry := range ov {
		if _, ok := best[filename]; ok {
			continue
		}
		out = append(out, SubmissionDTO{
			Filename:             filename,
			FileID:               entry.FileID,
			Status:               entry.Status,
			SubmittedForApproval: entry.SubmittedForApproval,
			AdminComments:        entry.AdminComments,
			StatusHistory:        entry.StatusHistory,
		})
	}

	if len(healed) > 0 {
		if err := g.overlays.Mutate(ctx, userID, func(m map[string]overlay.Entry) error {
			for filename, entry := range healed {
				m[filename] = entry
			}
			return nil
		}); err != nil {
			// self-healing is best-effort; the merged view above is already
			// correct for this read
			g.audit.Record(fmt.Sprintf("overlay reconcile failed for %s: %v", userID, err))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (g *Gateway) commentLines(ctx context.Context, fileID string) []string {
	if g.comments == nil || fileID == "" {
		return nil
	}
	comments, err := g.comments.List(ctx, fileID)
	if err != nil {
		return nil
	}
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		lines = append(lines, fmt.Sprintf("%s: %s", c.Actor, c.Comment))
	}
	return lines
}
