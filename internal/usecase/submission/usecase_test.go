package submission

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"reviewflow/internal/domain/overlay"
	"reviewflow/internal/domain/record"
	"reviewflow/internal/testutil/collabmock"
	"reviewflow/internal/testutil/overlaymock"
	"reviewflow/internal/testutil/storemock"
)

func newTestGateway() (*Gateway, *storemock.MemStore, *overlaymock.MemStore, *collabmock.AuditSink) {
	records := storemock.NewMemStore()
	overlays := overlaymock.NewMemStore()
	audit := &collabmock.AuditSink{}
	g := NewGateway(records, records, overlays, &collabmock.FileOracle{}, &collabmock.TeamDirectory{}, audit, "UNASSIGNED")
	return g, records, overlays, audit
}

func TestGateway_Submit(t *testing.T) {
	ctx := context.Background()
	g, records, overlays, _ := newTestGateway()

	dto, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg", Description: "rev A", Tags: []string{"cad"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if dto.Status != record.StatusPendingTeamLeader || !dto.SubmittedForApproval {
		t.Fatalf("dto = %+v", dto)
	}
	if len(dto.FileID) != 32 {
		t.Fatalf("file id %q not 32 chars", dto.FileID)
	}

	active, _ := records.Load(ctx, record.CollectionActiveQueue)
	rec, ok := active[dto.FileID]
	if !ok {
		t.Fatal("record missing from active queue")
	}
	if rec.OriginalFilename != "drawing.dwg" || rec.OwningUserID != "alice" || rec.OwningTeam != "ENG" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.FileSize != 1024 {
		t.Fatalf("file size = %d", rec.FileSize)
	}
	if len(rec.WorkflowHistory) != 1 || rec.WorkflowHistory[0].Status != record.StatusPendingTeamLeader {
		t.Fatalf("history = %+v", rec.WorkflowHistory)
	}

	ov, _ := overlays.Load(ctx, "alice")
	entry, ok := ov["drawing.dwg"]
	if !ok || entry.FileID != dto.FileID || !entry.SubmittedForApproval {
		t.Fatalf("overlay entry = %+v", entry)
	}
}

func TestGateway_SubmitMissingFile(t *testing.T) {
	g, _, _, _ := newTestGateway()
	g.files = &collabmock.FileOracle{
		StatFn: func(ctx context.Context, path string) (int64, error) {
			return 0, fmt.Errorf("stat %s: no such file", path)
		},
	}
	if _, err := g.Submit(context.Background(), SubmitInput{UserID: "alice", Path: "/files/ghost.dwg"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGateway_SubmitDuplicate(t *testing.T) {
	ctx := context.Background()
	g, records, _, _ := newTestGateway()

	if _, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if !errors.Is(err, record.ErrDuplicateSubmission) {
		t.Fatalf("err = %v, want ErrDuplicateSubmission", err)
	}

	active, _ := records.Load(ctx, record.CollectionActiveQueue)
	if len(active) != 1 {
		t.Fatalf("active queue has %d records, want 1", len(active))
	}

	// same filename from another user is not a duplicate
	if _, err := g.Submit(ctx, SubmitInput{UserID: "bob", Path: "/files/drawing.dwg"}); err != nil {
		t.Fatalf("bob's submit: %v", err)
	}
}

func TestGateway_SubmitDirectoryDownUsesDefaultTeam(t *testing.T) {
	ctx := context.Background()
	g, records, _, audit := newTestGateway()
	g.directory = &collabmock.TeamDirectory{
		TeamOfFn: func(ctx context.Context, userID string) (string, error) {
			return "", errors.New("ldap unreachable")
		},
	}

	dto, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	active, _ := records.Load(ctx, record.CollectionActiveQueue)
	if active[dto.FileID].OwningTeam != "UNASSIGNED" {
		t.Fatalf("team = %q, want default", active[dto.FileID].OwningTeam)
	}
	if len(audit.Lines) == 0 {
		t.Fatal("expected an audit line for the fallback")
	}
}

func TestGateway_SubmitCanonicalWriteFailureUnwindsOverlay(t *testing.T) {
	ctx := context.Background()
	overlays := overlaymock.NewMemStore()
	records := &storemock.Store{
		MutateFn: func(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error {
			return record.ErrStorageUnavailable
		},
	}
	g := NewGateway(records, nil, overlays, &collabmock.FileOracle{}, &collabmock.TeamDirectory{}, &collabmock.AuditSink{}, "UNASSIGNED")

	_, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if !errors.Is(err, record.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}

	// no entry existed before the submit, so the unwind removes it entirely
	ov, _ := overlays.Load(ctx, "alice")
	if entry, ok := ov["drawing.dwg"]; ok {
		t.Fatalf("overlay not unwound: %+v", entry)
	}
}

func TestGateway_SubmitRaceLoserRestoresWinnerOverlay(t *testing.T) {
	ctx := context.Background()
	overlays := overlaymock.NewMemStore()

	// the winner's submission is already live in the overlay
	winner := overlay.Entry{
		FileID:               "winner0000000000000000000000000a",
		Status:               record.StatusPendingTeamLeader,
		SubmittedForApproval: true,
		StatusHistory:        []record.HistoryEntry{{Status: record.StatusPendingTeamLeader, Actor: "alice"}},
	}
	_ = overlays.Mutate(ctx, "alice", func(m map[string]overlay.Entry) error {
		m["drawing.dwg"] = winner
		return nil
	})

	// the loser's pre-check misses the winner's record; the re-check under
	// the collection lock catches it
	records := &storemock.Store{
		LoadFn: func(ctx context.Context, col record.Collection) (map[string]record.Record, error) {
			return map[string]record.Record{}, nil
		},
		MutateFn: func(ctx context.Context, col record.Collection, fn func(map[string]record.Record) error) error {
			return fn(map[string]record.Record{
				winner.FileID: {FileID: winner.FileID, OwningUserID: "alice", OriginalFilename: "drawing.dwg", Status: record.StatusPendingTeamLeader},
			})
		},
	}
	g := NewGateway(records, nil, overlays, &collabmock.FileOracle{}, &collabmock.TeamDirectory{}, &collabmock.AuditSink{}, "UNASSIGNED")

	_, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if !errors.Is(err, record.ErrDuplicateSubmission) {
		t.Fatalf("err = %v, want ErrDuplicateSubmission", err)
	}

	// the winner's entry must come back exactly as it was: same file id,
	// still submitted, no extra history entry
	ov, _ := overlays.Load(ctx, "alice")
	entry := ov["drawing.dwg"]
	if entry.FileID != winner.FileID || !entry.SubmittedForApproval {
		t.Fatalf("winner overlay clobbered: %+v", entry)
	}
	if len(entry.StatusHistory) != len(winner.StatusHistory) {
		t.Fatalf("history grew during failed submit: %+v", entry.StatusHistory)
	}
}

func TestGateway_WithdrawThenSubmitMintsNewID(t *testing.T) {
	ctx := context.Background()
	g, records, overlays, _ := newTestGateway()

	first, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := g.Withdraw(ctx, "alice", "drawing.dwg"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	active, _ := records.Load(ctx, record.CollectionActiveQueue)
	if len(active) != 0 {
		t.Fatalf("active queue not empty after withdraw: %d", len(active))
	}
	ov, _ := overlays.Load(ctx, "alice")
	entry := ov["drawing.dwg"]
	if entry.SubmittedForApproval || entry.Status != record.StatusWithdrawn {
		t.Fatalf("overlay after withdraw = %+v", entry)
	}
	last := entry.StatusHistory[len(entry.StatusHistory)-1]
	if last.Status != record.StatusWithdrawn {
		t.Fatalf("missing withdrawn history entry: %+v", entry.StatusHistory)
	}

	second, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
	if err != nil {
		t.Fatalf("resubmit after withdraw: %v", err)
	}
	if second.FileID == first.FileID {
		t.Fatal("withdraw+submit reused the old file id")
	}
}

func TestGateway_WithdrawErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown filename", func(t *testing.T) {
		g, _, _, _ := newTestGateway()
		if err := g.Withdraw(ctx, "alice", "ghost.dwg"); !errors.Is(err, record.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("record no longer pending", func(t *testing.T) {
		g, records, _, _ := newTestGateway()
		_ = records.Mutate(ctx, record.CollectionActiveQueue, func(m map[string]record.Record) error {
			// an active-queue record can only be pending; simulate a
			// mid-transition observer anyway
			m["f1"] = record.Record{FileID: "f1", OwningUserID: "alice", OriginalFilename: "drawing.dwg", Status: record.StatusApproved}
			return nil
		})
		if err := g.Withdraw(ctx, "alice", "drawing.dwg"); !errors.Is(err, record.ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestGateway_Resubmit(t *testing.T) {
	ctx := context.Background()

	seedArchived := func(g *Gateway, records *storemock.MemStore, status record.Status) string {
		fileID := "old0000000000000000000000000000a"
		_ = records.Mutate(ctx, record.CollectionRejectedArchive, func(m map[string]record.Record) error {
			m[fileID] = record.Record{
				FileID:           fileID,
				OwningUserID:     "alice",
				OriginalFilename: "drawing.dwg",
				Status:           status,
				SubmissionDate:   time.Now().UTC().Add(-time.Hour),
			}
			return nil
		})
		return fileID
	}

	tests := []struct {
		name    string
		status  record.Status
		wantErr error
	}{
		{name: "from rejected_by_team_leader", status: record.StatusRejectedByTeamLeader},
		{name: "from rejected_by_admin", status: record.StatusRejectedByAdmin},
		{name: "from changes_requested", status: record.StatusChangesRequested},
		{name: "from approved is illegal", status: record.StatusApproved, wantErr: record.ErrInvalidTransition},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g, records, _, _ := newTestGateway()
			oldID := seedArchived(g, records, tt.status)

			dto, err := g.Resubmit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				active, _ := records.Load(ctx, record.CollectionActiveQueue)
				if len(active) != 0 {
					t.Fatal("illegal resubmit mutated the active queue")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resubmit: %v", err)
			}
			if dto.FileID == oldID {
				t.Fatal("resubmission reused the archived file id")
			}
			if dto.Status != record.StatusPendingTeamLeader {
				t.Fatalf("status = %s", dto.Status)
			}
			// archived record stays for audit
			archived, _ := records.Load(ctx, record.CollectionRejectedArchive)
			if _, ok := archived[oldID]; !ok {
				t.Fatal("archived record disappeared after resubmit")
			}
		})
	}

	t.Run("never submitted", func(t *testing.T) {
		g, _, _, _ := newTestGateway()
		if _, err := g.Resubmit(ctx, SubmitInput{UserID: "alice", Path: "/files/new.dwg"}); !errors.Is(err, record.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("still pending", func(t *testing.T) {
		g, _, _, _ := newTestGateway()
		if _, err := g.Submit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if _, err := g.Resubmit(ctx, SubmitInput{UserID: "alice", Path: "/files/drawing.dwg"}); !errors.Is(err, record.ErrInvalidTransition) {
			t.Fatalf("err = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestGateway_ListReconcilesOverlay(t *testing.T) {
	ctx := context.Background()
	g, records, overlays, _ := newTestGateway()

	// canonical record the overlay has never seen (another device submitted)
	_ = records.Mutate(ctx, record.CollectionActiveQueue, func(m map[string]record.Record) error {
		m["f1"] = record.Record{
			FileID:           "f1",
			OwningUserID:     "alice",
			OriginalFilename: "plan.pdf",
			Status:           record.StatusPendingAdmin,
			SubmissionDate:   time.Now().UTC(),
			WorkflowHistory: []record.HistoryEntry{
				{Status: record.StatusPendingTeamLeader},
				{Status: record.StatusPendingAdmin},
			},
		}
		return nil
	})

	subs, err := g.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 1 || subs[0].Filename != "plan.pdf" || subs[0].Status != record.StatusPendingAdmin {
		t.Fatalf("subs = %+v", subs)
	}

	// the read healed the overlay
	ov, _ := overlays.Load(ctx, "alice")
	entry, ok := ov["plan.pdf"]
	if !ok || entry.FileID != "f1" || entry.Status != record.StatusPendingAdmin || !entry.SubmittedForApproval {
		t.Fatalf("overlay not healed: %+v", entry)
	}
}

func TestGateway_ListMergesOverlayOnlyEntries(t *testing.T) {
	ctx := context.Background()
	g, _, overlays, _ := newTestGateway()

	_ = overlays.Mutate(ctx, "alice", func(m map[string]overlay.Entry) error {
		m["old.dwg"] = overlay.Entry{Status: record.StatusWithdrawn}
		return nil
	})

	subs, err := g.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 1 || subs[0].Status != record.StatusWithdrawn || subs[0].SubmittedForApproval {
		t.Fatalf("subs = %+v", subs)
	}
}
