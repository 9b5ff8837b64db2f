package provider

import (
	"strings"

	"promptreel/internal/generation"
)

// mapStatus translates an upstream status word. ok is false for words the
// provider API does not document.
func mapStatus(value string) (generation.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "queued", "pending", "processing", "running", "in_progress":
		return generation.StatusProcessing, true
	case "succeeded", "completed", "complete", "done":
		return generation.StatusCompleted, true
	case "failed", "error", "cancelled", "canceled":
		return generation.StatusFailed, true
	default:
		return "", false
	}
}
