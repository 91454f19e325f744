// Package attendance turns an "entry observed" into the next check-in or
// check-out for that identity.
package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/gatewatch/internal/backend"
)

// Service is the attendance side of the identity service
type Service interface {
	LastEvent(ctx context.Context, id string) (backend.LastEvent, error)
	RecordIn(ctx context.Context, id, name string) (*backend.CheckIn, error)
	RecordOut(ctx context.Context, id, name string) (*backend.CheckOut, error)
}

// Action is what a toggle did
type Action string

const (
	ActionIn      Action = "in"
	ActionOut     Action = "out"
	ActionSkipped Action = "skipped" // cooldown active on the service
)

// Outcome describes a finished toggle
type Outcome struct {
	Action   Action
	Message  string
	CheckIn  *backend.CheckIn
	CheckOut *backend.CheckOut
}

// Stage names the step a toggle failed at
type Stage string

const (
	StageLookup Stage = "lookup"
	StageSubmit Stage = "submit"
)

// ToggleError is returned when the lookup or the submission fails.
// Nothing was changed locally, so the caller only needs to surface it.
type ToggleError struct {
	IdentityID string
	Name       string
	Stage      Stage
	Next       Action // intended action, empty for lookup failures
	Err        error
}

func (e *ToggleError) Error() string {
	if e.Stage == StageLookup {
		return fmt.Sprintf("attendance for %s: last event lookup failed: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("attendance for %s: check-%s failed: %v", e.Name, e.Next, e.Err)
}

func (e *ToggleError) Unwrap() error {
	return e.Err
}

// NextAction maps the last known event to the toggle value.
// ok is false when the service reports a cooldown.
func NextAction(last backend.EventStatus) (next Action, ok bool) {
	switch last {
	case backend.StatusCooldown:
		return ActionSkipped, false
	case backend.StatusIn:
		return ActionOut, true
	default:
		return ActionIn, true
	}
}

// Toggler submits the next attendance event for an identity.
// It keeps no state; flicker protection is the service's cooldown.
type Toggler struct {
	svc Service
}

// NewToggler creates a toggler on top of svc
func NewToggler(svc Service) *Toggler {
	return &Toggler{svc: svc}
}

// Toggle records the next event for an identity that just entered the view.
func (t *Toggler) Toggle(ctx context.Context, id, name string) (Outcome, error) {
	last, err := t.svc.LastEvent(ctx, id)
	if err != nil {
		return Outcome{}, &ToggleError{IdentityID: id, Name: name, Stage: StageLookup, Err: err}
	}

	next, ok := NextAction(last.Status)
	if !ok {
		return Outcome{
			Action:  ActionSkipped,
			Message: fmt.Sprintf("%s: cooldown active, nothing recorded", name),
		}, nil
	}

	if next == ActionOut {
		out, err := t.svc.RecordOut(ctx, id, name)
		if err != nil {
			return Outcome{}, &ToggleError{IdentityID: id, Name: name, Stage: StageSubmit, Next: next, Err: err}
		}
		return Outcome{
			Action:   ActionOut,
			Message:  farewell(name, out),
			CheckOut: out,
		}, nil
	}

	in, err := t.svc.RecordIn(ctx, id, name)
	if err != nil {
		return Outcome{}, &ToggleError{IdentityID: id, Name: name, Stage: StageSubmit, Next: next, Err: err}
	}
	return Outcome{
		Action:  ActionIn,
		Message: greeting(name, in),
		CheckIn: in,
	}, nil
}
