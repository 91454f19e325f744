// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/gatewatch/internal/database"
)

// MockIdentityRepository is an in-memory database.IdentityWriter
type MockIdentityRepository struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity

	// Error injection
	ListError   error
	GetError    error
	CreateError error
	DeleteError error
}

// NewMockIdentityRepository creates an empty identity repository
func NewMockIdentityRepository() *MockIdentityRepository {
	return &MockIdentityRepository{
		identities: make(map[string]*database.StoredIdentity),
	}
}

// AddIdentity adds an identity to the mock store
func (m *MockIdentityRepository) AddIdentity(identity database.StoredIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	m.identities[identity.ID] = &identity
}

// ListIdentities returns all identities ordered by creation time
func (m *MockIdentityRepository) ListIdentities(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	slices.SortFunc(result, func(a, b database.StoredIdentity) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// GetIdentity returns an identity by ID, nil if not found
func (m *MockIdentityRepository) GetIdentity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[id]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

// CreateIdentity stores a new identity
func (m *MockIdentityRepository) CreateIdentity(ctx context.Context, name string, embedding []float32) (*database.StoredIdentity, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	identity := database.StoredIdentity{
		ID:        uuid.NewString(),
		Name:      name,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = &identity
	cp := identity
	return &cp, nil
}

// DeleteIdentity removes an identity
func (m *MockIdentityRepository) DeleteIdentity(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.identities, id)
	return nil
}

// MockAttendanceRepository is an in-memory database.AttendanceWriter
type MockAttendanceRepository struct {
	mu     sync.RWMutex
	events []database.StoredAttendanceEvent
	nextID int64

	// Error injection
	LastError   error
	EventsError error
	AppendError error
}

// NewMockAttendanceRepository creates an empty attendance repository
func NewMockAttendanceRepository() *MockAttendanceRepository {
	return &MockAttendanceRepository{nextID: 1}
}

// LastEvent returns the most recent event of an identity
func (m *MockAttendanceRepository) LastEvent(ctx context.Context, identityID string) (*database.StoredAttendanceEvent, error) {
	if m.LastError != nil {
		return nil, m.LastError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *database.StoredAttendanceEvent
	for i := range m.events {
		ev := &m.events[i]
		if ev.IdentityID != identityID {
			continue
		}
		if last == nil || !ev.At.Before(last.At) {
			last = ev
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

// EventsBetween returns events with from <= At < to, oldest first
func (m *MockAttendanceRepository) EventsBetween(ctx context.Context, identityID string, from, to time.Time) ([]database.StoredAttendanceEvent, error) {
	if m.EventsError != nil {
		return nil, m.EventsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.StoredAttendanceEvent
	for _, ev := range m.events {
		if ev.IdentityID == identityID && !ev.At.Before(from) && ev.At.Before(to) {
			result = append(result, ev)
		}
	}
	slices.SortStableFunc(result, func(a, b database.StoredAttendanceEvent) int {
		return a.At.Compare(b.At)
	})
	return result, nil
}

// AppendEvent stores an event
func (m *MockAttendanceRepository) AppendEvent(ctx context.Context, ev database.StoredAttendanceEvent) (*database.StoredAttendanceEvent, error) {
	if m.AppendError != nil {
		return nil, m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = m.nextID
	m.nextID++
	m.events = append(m.events, ev)
	return &ev, nil
}

// AllEvents returns every stored event in insertion order
func (m *MockAttendanceRepository) AllEvents() []database.StoredAttendanceEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

// MockSightingRepository is an in-memory database.SightingWriter
type MockSightingRepository struct {
	mu         sync.RWMutex
	sightings  map[string]*database.StoredSighting
	nextNumber int64

	// Error injection
	ListError   error
	GetError    error
	AllError    error
	CreateError error
	RecordError error
	DeleteError error
}

// NewMockSightingRepository creates an empty sighting repository
func NewMockSightingRepository() *MockSightingRepository {
	return &MockSightingRepository{
		sightings:  make(map[string]*database.StoredSighting),
		nextNumber: 1,
	}
}

// ListSightings returns up to limit sightings, most recently seen first
func (m *MockSightingRepository) ListSightings(ctx context.Context, limit int) ([]database.StoredSighting, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	all, _ := m.AllSightings(ctx)
	slices.SortFunc(all, func(a, b database.StoredSighting) int {
		if c := b.LastSeen.Compare(a.LastSeen); c != 0 {
			return c
		}
		return cmp.Compare(b.Number, a.Number)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetSighting returns a sighting by ID, nil if not found
func (m *MockSightingRepository) GetSighting(ctx context.Context, id string) (*database.StoredSighting, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sightings[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// AllSightings returns every sighting ordered by number
func (m *MockSightingRepository) AllSightings(ctx context.Context) ([]database.StoredSighting, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredSighting, 0, len(m.sightings))
	for _, s := range m.sightings {
		result = append(result, *s)
	}
	slices.SortFunc(result, func(a, b database.StoredSighting) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return result, nil
}

// CreateSighting stores a new sighting
func (m *MockSightingRepository) CreateSighting(ctx context.Context, s database.StoredSighting) (*database.StoredSighting, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.NewString()
	s.Number = m.nextNumber
	m.nextNumber++
	if s.Detections == 0 {
		s.Detections = 1
	}
	m.sightings[s.ID] = &s
	cp := s
	return &cp, nil
}

// RecordDetection bumps the detection count of a sighting
func (m *MockSightingRepository) RecordDetection(ctx context.Context, id string, confidence float64, image string, at time.Time) (*database.StoredSighting, error) {
	if m.RecordError != nil {
		return nil, m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sightings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	s.Detections++
	s.Confidence = confidence
	if image != "" {
		s.Image = image
	}
	s.LastSeen = at
	cp := *s
	return &cp, nil
}

// DeleteSighting removes a sighting
func (m *MockSightingRepository) DeleteSighting(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sightings[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.sightings, id)
	return nil
}
