package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by writers when the target row does not exist
var ErrNotFound = errors.New("not found")

// IdentityReader provides read-only access to the gallery
type IdentityReader interface {
	// ListIdentities returns all identities ordered by creation time
	ListIdentities(ctx context.Context) ([]StoredIdentity, error)
	// GetIdentity returns an identity by ID, nil if not found
	GetIdentity(ctx context.Context, id string) (*StoredIdentity, error)
}

// IdentityWriter provides write access to the gallery
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity stores a new identity and assigns its ID
	CreateIdentity(ctx context.Context, name string, embedding []float32) (*StoredIdentity, error)
	// DeleteIdentity removes an identity together with its attendance history.
	// Returns ErrNotFound if the identity does not exist.
	DeleteIdentity(ctx context.Context, id string) error
}

// AttendanceReader provides read-only access to attendance history
type AttendanceReader interface {
	// LastEvent returns the most recent event of an identity, nil if there is none
	LastEvent(ctx context.Context, identityID string) (*StoredAttendanceEvent, error)
	// EventsBetween returns events with from <= At < to, oldest first
	EventsBetween(ctx context.Context, identityID string, from, to time.Time) ([]StoredAttendanceEvent, error)
}

// AttendanceWriter appends attendance events
type AttendanceWriter interface {
	AttendanceReader

	// AppendEvent stores an event and returns it with its ID set
	AppendEvent(ctx context.Context, ev StoredAttendanceEvent) (*StoredAttendanceEvent, error)
}

// SightingReader provides read-only access to unknown sightings
type SightingReader interface {
	// ListSightings returns up to limit sightings, most recently seen first
	ListSightings(ctx context.Context, limit int) ([]StoredSighting, error)
	// GetSighting returns a sighting by ID, nil if not found
	GetSighting(ctx context.Context, id string) (*StoredSighting, error)
	// AllSightings returns every sighting including embeddings, for index rebuilds
	AllSightings(ctx context.Context) ([]StoredSighting, error)
}

// SightingWriter provides write access to unknown sightings
type SightingWriter interface {
	SightingReader

	// CreateSighting stores a new sighting, assigning ID and Number
	CreateSighting(ctx context.Context, s StoredSighting) (*StoredSighting, error)
	// RecordDetection bumps the detection count and refreshes the latest crop.
	// Returns ErrNotFound if the sighting does not exist.
	RecordDetection(ctx context.Context, id string, confidence float64, image string, at time.Time) (*StoredSighting, error)
	// DeleteSighting removes a sighting. Returns ErrNotFound if it does not exist.
	DeleteSighting(ctx context.Context, id string) error
}
