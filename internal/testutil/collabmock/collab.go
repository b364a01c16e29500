// Package collabmock provides function-backed mocks for the external
// collaborator interfaces.
package collabmock

import (
	"context"
	"sync"
)

type FileOracle struct {
	StatFn func(ctx context.Context, path string) (int64, error)
}

func (m *FileOracle) Stat(ctx context.Context, path string) (int64, error) {
	if m.StatFn != nil {
		return m.StatFn(ctx, path)
	}
	return 1024, nil
}

type TeamDirectory struct {
	TeamOfFn func(ctx context.Context, userID string) (string, error)
}

func (m *TeamDirectory) TeamOf(ctx context.Context, userID string) (string, error) {
	if m.TeamOfFn != nil {
		return m.TeamOfFn(ctx, userID)
	}
	return "ENG", nil
}

// AuditSink records every line it receives.
type AuditSink struct {
	mu    sync.Mutex
	Lines []string
}

func (m *AuditSink) Record(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, line)
}
