package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + model name and optional fields via key/values.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// Event names published by the manager.
const (
	EventStartAttempt = "runtime_start"
	EventStartResult  = "runtime_start_result"
	EventPullProgress = "pull_progress"
	EventPullDone     = "pull_done"
	EventSwitchDone   = "switch_done"
	EventModelDeleted = "model_deleted"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
