// Package events delivers engine notifications to logs, SSE listeners and MQTT.
package events

import (
	"sync"
	"time"
)

// Type names an engine notification
type Type string

const (
	EntryObserved    Type = "entry_observed"
	Departed         Type = "departed"
	RoomCleared      Type = "room_cleared"
	CheckedIn        Type = "checked_in"
	CheckedOut       Type = "checked_out"
	ToggleSkipped    Type = "toggle_skipped"
	AttendanceFailed Type = "attendance_failed"
	UnknownLogged    Type = "unknown_logged"
	UnknownFailed    Type = "unknown_failed"
	GalleryError     Type = "gallery_error"
	DetectionError   Type = "detection_error"
	Status           Type = "status"
	CycleSkipped     Type = "cycle_skipped"
	MonitorStarted   Type = "monitor_started"
	MonitorStopped   Type = "monitor_stopped"
)

// Event is a single engine notification
type Event struct {
	Type       Type      `json:"type"`
	Time       time.Time `json:"time"`
	SessionID  string    `json:"sessionId,omitempty"`
	IdentityID string    `json:"identityId,omitempty"`
	Name       string    `json:"name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Data       any       `json:"data,omitempty"`
}

// Sink receives events. Emit must not block for long; it runs inside the cycle.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Fanout forwards every event to each sink in order
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps every event in memory. Used by tests and the status endpoint.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
