package review

import (
	"time"

	"reviewflow/internal/domain/record"
)

type DecideInput struct {
	FileID         string
	Actor          string
	Role           record.Role
	Decision       record.Decision
	Reason         string
	RequestChanges bool
}

type DecisionDTO struct {
	FileID     string            `json:"file_id"`
	Filename   string            `json:"filename"`
	OldStatus  record.Status     `json:"old_status"`
	NewStatus  record.Status     `json:"new_status"`
	Collection record.Collection `json:"collection"`
	DecidedAt  time.Time         `json:"decided_at"`
}
