// Package collab provides process-local default implementations of the
// engine's external collaborators.
package collab

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

// OSFileOracle answers existence/size questions from the local filesystem.
type OSFileOracle struct{}

func (OSFileOracle) Stat(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("stat %s: is a directory", path)
	}
	return info.Size(), nil
}

// StaticTeamDirectory resolves teams from an in-memory table. Users absent
// from the table are reported as unknown; callers fall back to their
// configured default team.
type StaticTeamDirectory struct {
	mu    sync.RWMutex
	teams map[string]string
}

func NewStaticTeamDirectory(teams map[string]string) *StaticTeamDirectory {
	if teams == nil {
		teams = make(map[string]string)
	}
	return &StaticTeamDirectory{teams: teams}
}

func (d *StaticTeamDirectory) Assign(userID, team string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teams[userID] = team
}

func (d *StaticTeamDirectory) TeamOf(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	team, ok := d.teams[userID]
	if !ok {
		return "", fmt.Errorf("no team for user %s", userID)
	}
	return team, nil
}

// LogAuditSink writes audit lines to the process log. Fire-and-forget.
type LogAuditSink struct{}

func (LogAuditSink) Record(line string) {
	log.Printf("audit: %s", line)
}
