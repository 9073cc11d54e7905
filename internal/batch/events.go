// Package batch runs one folder of images through face detection and identity
// assignment, streaming structured events to whoever is watching.
package batch

// EventType identifies the kind of event emitted by a run.
type EventType string

// Event kinds emitted by the batch processor.
const (
	EventLog      EventType = "log"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
)

// Event is one unit of information sent from the background worker to the
// consumer loop. Progress events carry Current/Total; log events carry Message.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message,omitempty"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
}

// LogEvent builds a log event.
func LogEvent(message string) Event {
	return Event{Type: EventLog, Message: message}
}

// ProgressEvent builds a progress event. Current is 1-based and counts images
// attempted so far.
func ProgressEvent(current, total int) Event {
	return Event{Type: EventProgress, Current: current, Total: total}
}

// CompleteEvent builds the completion event. It is always the last event of a run.
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}
