package database

import (
	"time"
)

// Attendance event kinds
const (
	KindIn  = "in"
	KindOut = "out"
)

// StoredIdentity is an enrolled person with their reference embedding
type StoredIdentity struct {
	ID        string
	Name      string
	Embedding []float32
	CreatedAt time.Time
}

// StoredAttendanceEvent is one check-in or check-out
type StoredAttendanceEvent struct {
	ID         int64
	IdentityID string
	Name       string
	Kind       string // KindIn or KindOut
	At         time.Time

	// Set on check-out only
	SessionSeconds int64
	BreakType      string
	BreakLabel     string
}

// StoredSighting is an unknown person seen by the engine
type StoredSighting struct {
	ID         string
	Number     int64 // sequential, used for the "Unknown #N" display name
	Embedding  []float32
	Confidence float64 // confidence of the latest detection
	Image      string  // data URL of the latest crop
	FirstSeen  time.Time
	LastSeen   time.Time
	Detections int
}
