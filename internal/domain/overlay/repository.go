package overlay

import "context"

// Store persists one overlay document per user (filename → Entry), guarded
// by a per-user named lock so different users' overlays never contend.
type Store interface {
	// Load returns the user's overlay snapshot; read-path I/O failures are
	// absorbed as an empty mapping.
	Load(ctx context.Context, userID string) (map[string]Entry, error)

	// Mutate applies fn to the user's overlay under its lock and persists
	// the result atomically.
	Mutate(ctx context.Context, userID string, fn func(map[string]Entry) error) error
}
