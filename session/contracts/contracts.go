package contracts

import (
	"codebundle/session/models"
)

// IContentSource produces content-or-failure-reason for a relative path.
// Direct disk reads and manual paste capture are both variants of this
// capability; the session controller depends only on the interface.
type IContentSource interface {
	// Acquire returns the acquired content and a machine-readable reason.
	// On failure ok is false and reason explains why (e.g. "not-found",
	// "binary-detected(NULL)"); on success reason describes how the content
	// was obtained (e.g. "ok(utf-8)").
	Acquire(relPath string) (content string, reason string, ok bool)
}

// ICheckpointStore persists and restores session state.
type ICheckpointStore interface {
	// Save durably writes the full session state. A failed save is fatal to
	// the session: progress that cannot be recorded must not be claimed.
	Save(state *models.SessionState) error

	// Load returns the previously checkpointed state matching the supplied
	// inventory and scan roots exactly, or nil when no usable state exists
	// (missing, corrupted, or mismatched checkpoints are all "no state").
	Load(scanRoots []string, root string, files []string) *models.SessionState
}
