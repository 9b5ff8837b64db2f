package tracker

import "promptreel/internal/generation"

// EventType classifies a tracker state change.
type EventType string

const (
	EventStarted   EventType = "started"
	EventSubmitted EventType = "submitted"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is a snapshot of a generation taken right after it changed.
type Event struct {
	Type       EventType
	Generation generation.Generation
}

// Counts are projections over the tracker's current state.
type Counts struct {
	Active    int
	Completed int
	Failed    int
}
