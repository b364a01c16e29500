package record

import (
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("approval record not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Status of an approval record. Values are wire-stable (§persisted layout).
type Status string

const (
	StatusPendingTeamLeader    Status = "pending_team_leader"
	StatusPendingAdmin         Status = "pending_admin"
	StatusApproved             Status = "approved"
	StatusRejectedByTeamLeader Status = "rejected_by_team_leader"
	StatusRejectedByAdmin      Status = "rejected_by_admin"
	StatusChangesRequested     Status = "changes_requested"
	StatusWithdrawn            Status = "withdrawn"
)

// Pending reports whether the status still awaits a reviewer decision.
func (s Status) Pending() bool {
	return s == StatusPendingTeamLeader || s == StatusPendingAdmin
}

// Resubmittable reports whether a record in this status may be superseded by
// a fresh submission of the same filename.
func (s Status) Resubmittable() bool {
	switch s {
	case StatusRejectedByTeamLeader, StatusRejectedByAdmin, StatusChangesRequested:
		return true
	}
	return false
}

// Collection names one of the three persisted record collections. A file ID
// lives in exactly one of them at any time after submission.
type Collection string

const (
	CollectionActiveQueue     Collection = "active_queue"
	CollectionApprovedArchive Collection = "approved_archive"
	CollectionRejectedArchive Collection = "rejected_archive"
)

// Role of the actor taking a review decision.
type Role string

const (
	RoleTeamLeader Role = "team_leader"
	RoleAdmin      Role = "admin"
)

// Decision a reviewer can take on a pending record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// HistoryEntry is one link in a record's append-only workflow history.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Comment   string    `json:"comment,omitempty"`
}

// Record is one submission attempt. A resubmission creates a new Record with
// a fresh FileID; the superseded one stays in its archive for audit.
type Record struct {
	FileID           string         `json:"file_id"`
	OriginalFilename string         `json:"original_filename"`
	OwningUserID     string         `json:"owning_user_id"`
	OwningTeam       string         `json:"owning_team"`
	FileSize         int64          `json:"file_size"`
	Description      string         `json:"description"`
	Tags             []string       `json:"tags,omitempty"`
	Status           Status         `json:"status"`
	SubmissionDate   time.Time      `json:"submission_date"`
	DecidedBy        string         `json:"decided_by,omitempty"`
	DecidedDate      *time.Time     `json:"decided_date,omitempty"`
	RejectionReason  string         `json:"rejection_reason,omitempty"`
	WorkflowHistory  []HistoryEntry `json:"workflow_history"`
}

// Comment attached to a record, independent of its status.
type Comment struct {
	Actor     string    `json:"actor"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}
