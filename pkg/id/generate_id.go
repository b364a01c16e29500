package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 lowercase hex characters (no separators/prefixes).
// Every submission or resubmission mints a fresh one as its file ID.
func NewID32() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
