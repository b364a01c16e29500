package submission

import (
	"reviewflow/internal/domain/record"
)

type SubmitInput struct {
	UserID      string
	Path        string
	Description string
	Tags        []string
}

type SubmissionDTO struct {
	Filename             string                `json:"filename"`
	FileID               string                `json:"file_id"`
	Status               record.Status         `json:"status"`
	SubmittedForApproval bool                  `json:"submitted_for_approval"`
	AdminComments        []string              `json:"admin_comments,omitempty"`
	StatusHistory        []record.HistoryEntry `json:"status_history,omitempty"`
}
