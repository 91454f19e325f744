package monitor

import (
	"time"

	"github.com/kozaktomas/gatewatch/internal/overlay"
)

// PresentIdentity is an identity currently in view
type PresentIdentity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status is the latest engine state shown to operators
type Status struct {
	Running       bool               `json:"running"`
	SessionID     string             `json:"sessionId,omitempty"`
	StartedAt     *time.Time         `json:"startedAt,omitempty"`
	Cycles        uint64             `json:"cycles"`
	Present       []PresentIdentity  `json:"present"`
	AbsenceStreak int                `json:"absenceStreak"`
	Projection    overlay.Projection `json:"projection"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (m *Monitor) publishStatus(s *Session, proj overlay.Projection, present []PresentIdentity, streak int) Status {
	if present == nil {
		present = []PresentIdentity{}
	}
	startedAt := s.StartedAt
	st := Status{
		Running:       true,
		SessionID:     s.ID,
		StartedAt:     &startedAt,
		Cycles:        s.Cycles(),
		Present:       present,
		AbsenceStreak: streak,
		Projection:    proj,
		UpdatedAt:     time.Now(),
	}
	m.status.Store(&st)
	return st
}
