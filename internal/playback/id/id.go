// Package id provides unique identifier generation for playback sessions.
package id

import (
	"github.com/google/uuid"
)

// Generate creates a new unique session ID.
// Format: sess-<uuid>
// Example: sess-7f1c2a9e-5b0d-4a43-9d2e-1c6f0e8b3a51
func Generate() string {
	return "sess-" + uuid.NewString()
}
