// Package collab declares the engine's external collaborators. Their
// implementations live outside the workflow core; the adapters under
// internal/adapter/collab provide process-local defaults.
package collab

import "context"

// FileOracle reports existence and byte size of the file backing a
// submission. Called only at submission time for validation.
type FileOracle interface {
	// Stat returns the file's size in bytes, or an error if the file does
	// not exist or cannot be inspected.
	Stat(ctx context.Context, path string) (int64, error)
}

// TeamDirectory resolves the team owning a user. Callers must tolerate
// unavailability by falling back to a documented default team; an unreachable
// directory service never blocks the workflow.
type TeamDirectory interface {
	TeamOf(ctx context.Context, userID string) (string, error)
}

// AuditSink receives human-readable lines describing actions taken.
// Fire-and-forget: it never blocks and never fails a workflow operation.
type AuditSink interface {
	Record(line string)
}
