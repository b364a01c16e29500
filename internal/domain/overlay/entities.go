package overlay

import (
	"reviewflow/internal/domain/record"
)

// Entry is the per-user, per-filename cache mirroring a subset of the
// canonical approval record. The submitter reads it local-first; reads from
// the canonical store reconcile it when they diverge.
type Entry struct {
	FileID               string                `json:"file_id,omitempty"`
	Status               record.Status         `json:"status,omitempty"`
	SubmittedForApproval bool                  `json:"submitted_for_approval"`
	AdminComments        []string              `json:"admin_comments,omitempty"`
	StatusHistory        []record.HistoryEntry `json:"status_history,omitempty"`
}
