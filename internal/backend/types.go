package backend

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity is an enrolled person with a single reference embedding
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateIdentityRequest is the body of POST /identities
type CreateIdentityRequest struct {
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// EventStatus is the state reported by the attendance "last event" endpoint
type EventStatus string

const (
	StatusNone     EventStatus = "none"
	StatusIn       EventStatus = "in"
	StatusOut      EventStatus = "out"
	StatusCooldown EventStatus = "cooldown"
)

// LastEvent is the decoded reply of GET /identities/{id}/attendance/last.
// Exactly one status is set; At is present for in, out and cooldown.
type LastEvent struct {
	Status EventStatus
	At     *time.Time
}

type lastEventWire struct {
	Status *string    `json:"status"`
	At     *time.Time `json:"at,omitempty"`
}

// UnmarshalJSON rejects unknown or missing statuses so callers never act on a
// guessed value.
func (e *LastEvent) UnmarshalJSON(data []byte) error {
	var w lastEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode last event: %w", err)
	}
	if w.Status == nil {
		return fmt.Errorf("decode last event: %w", ErrMissingStatus)
	}
	switch s := EventStatus(*w.Status); s {
	case StatusNone, StatusIn, StatusOut, StatusCooldown:
		e.Status = s
	default:
		return fmt.Errorf("decode last event: %w: %q", ErrUnknownStatus, *w.Status)
	}
	e.At = w.At
	return nil
}

func (e LastEvent) MarshalJSON() ([]byte, error) {
	s := string(e.Status)
	return json.Marshal(lastEventWire{Status: &s, At: e.At})
}

// RecordRequest is the body of the attendance in/out endpoints
type RecordRequest struct {
	Name string `json:"name"`
}

// CheckIn is the reply of a successful check-in
type CheckIn struct {
	TimeIn      time.Time `json:"timeIn"`
	EntryNumber int       `json:"entryNumber"`
}

// CheckOut is the reply of a successful check-out. Durations are in seconds.
type CheckOut struct {
	TimeOut         time.Time `json:"timeOut"`
	SessionDuration int64     `json:"sessionDuration"`
	BreakType       string    `json:"breakType"`
	BreakLabel      string    `json:"breakLabel"`
	TodayTotal      int64     `json:"todayTotal"`
}

// AttendanceEvent is one check-in or check-out record
type AttendanceEvent struct {
	ID              string    `json:"id"`
	IdentityID      string    `json:"identityId"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"` // "in" or "out"
	At              time.Time `json:"at"`
	SessionDuration int64     `json:"sessionDuration,omitempty"`
	BreakType       string    `json:"breakType,omitempty"`
	BreakLabel      string    `json:"breakLabel,omitempty"`
}

// DailySummary is the reply of GET /identities/{id}/attendance/summary
type DailySummary struct {
	IdentityID   string            `json:"identityId"`
	Date         string            `json:"date"` // YYYY-MM-DD in the service timezone
	Entries      int               `json:"entries"`
	TotalSeconds int64             `json:"totalSeconds"`
	CurrentlyIn  bool              `json:"currentlyIn"`
	Events       []AttendanceEvent `json:"events"`
}

// UnknownReport is the body of POST /unknowns
type UnknownReport struct {
	Embedding  []float32 `json:"embedding"`
	Confidence float64   `json:"confidence"`
	Image      string    `json:"image"` // data URL, image/jpeg
}

// UnknownResult is the reply of POST /unknowns
type UnknownResult struct {
	IsNew           bool      `json:"isNew"`
	DisplayName     string    `json:"displayName"`
	Timestamp       time.Time `json:"timestamp"`
	TotalDetections int       `json:"totalDetections"`
}

// Sighting is a stored unknown person as returned by GET /unknowns
type Sighting struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Confidence  float64   `json:"confidence"`
	Image       string    `json:"image,omitempty"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	Detections  int       `json:"detections"`
}
