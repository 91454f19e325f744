// Package presence tracks which identities are currently in view, with hysteresis
// against frame-to-frame flicker and brief empty frames.
package presence

import (
	"slices"

	"github.com/kozaktomas/gatewatch/internal/constants"
)

// Update reports what changed in one cycle
type Update struct {
	Entered       []string // newly present, in first-seen order
	Departed      []string // dropped because they were not re-confirmed
	RoomCleared   bool
	AbsenceStreak int
}

// Tracker is not safe for concurrent use; the owning session serialises calls.
type Tracker struct {
	clearAfter    int
	absenceStreak int
	present       map[string]struct{}
}

// NewTracker creates a tracker that clears the room after clearAfter consecutive
// empty cycles. Values below 1 fall back to the default.
func NewTracker(clearAfter int) *Tracker {
	if clearAfter < 1 {
		clearAfter = constants.DefaultClearAfter
	}
	return &Tracker{
		clearAfter: clearAfter,
		present:    make(map[string]struct{}),
	}
}

// Observe advances the tracker by one cycle. detectionCount counts every face
// seen, recognized lists the ids of Recognized results only.
func (t *Tracker) Observe(detectionCount int, recognized []string) Update {
	if detectionCount == 0 {
		t.absenceStreak++
		if t.absenceStreak >= t.clearAfter && len(t.present) > 0 {
			clear(t.present)
			t.absenceStreak = 0
			return Update{RoomCleared: true}
		}
		return Update{AbsenceStreak: t.absenceStreak}
	}

	t.absenceStreak = 0

	var upd Update
	confirmed := make(map[string]struct{}, len(recognized))
	for _, id := range recognized {
		if _, dup := confirmed[id]; dup {
			continue
		}
		confirmed[id] = struct{}{}
		if _, ok := t.present[id]; !ok {
			t.present[id] = struct{}{}
			upd.Entered = append(upd.Entered, id)
		}
	}

	for id := range t.present {
		if _, ok := confirmed[id]; !ok {
			delete(t.present, id)
			upd.Departed = append(upd.Departed, id)
		}
	}
	slices.Sort(upd.Departed)

	return upd
}

// Clear empties the presence set and resets the absence streak
func (t *Tracker) Clear() {
	clear(t.present)
	t.absenceStreak = 0
}

// Present returns the ids currently in view, sorted
func (t *Tracker) Present() []string {
	ids := make([]string, 0, len(t.present))
	for id := range t.present {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsPresent reports whether id is currently in view
func (t *Tracker) IsPresent(id string) bool {
	_, ok := t.present[id]
	return ok
}

// Streak returns the current number of consecutive empty cycles
func (t *Tracker) Streak() int {
	return t.absenceStreak
}
