package authoring

import (
	"time"

	"programme-studio/internal/media"
)

type EventKind string

const (
	EventUploadStarted EventKind = "upload_started"
	EventUploadSettled EventKind = "upload_settled"
	EventDetailsSaved  EventKind = "details_saved"
	EventClosed        EventKind = "closed"
)

// Event describes one workflow milestone. Current is false when the session
// that produced it was already closed or replaced.
type Event struct {
	Kind     EventKind
	Session  string
	Current  bool
	UploadID string
	Title    string
	Video    media.File
	Result   UploadResult
	Err      error
	// Saved is set on EventClosed when the session ended by saving details.
	Saved bool
	At    time.Time
}

type EventSink interface {
	HandleEvent(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) HandleEvent(e Event) { f(e) }

// Sinks fans one event out to several sinks in order.
type Sinks []EventSink

func (s Sinks) HandleEvent(e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.HandleEvent(e)
		}
	}
}

type discardSink struct{}

func (discardSink) HandleEvent(Event) {}
