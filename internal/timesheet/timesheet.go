// Package timesheet implements the attendance rules of the identity service:
// server-side cooldown, break classification and daily totals.
package timesheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/database"
	"github.com/kozaktomas/gatewatch/internal/metrics"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrCooldown         = errors.New("cooldown active")
	ErrAlreadyIn        = errors.New("already checked in")
	ErrNotCheckedIn     = errors.New("not checked in")
)

// Rules configure the service
type Rules struct {
	Cooldown time.Duration
	Location *time.Location
	Breaks   *BreakClassifier
}

// RulesFromConfig builds Rules from the attendance configuration
func RulesFromConfig(cfg config.AttendanceConfig) (Rules, error) {
	breaks, err := NewBreakClassifier(cfg.DefaultBreak, cfg.BreakWindows)
	if err != nil {
		return Rules{}, err
	}
	return Rules{
		Cooldown: cfg.Cooldown,
		Location: cfg.Location(),
		Breaks:   breaks,
	}, nil
}

// Service records check-ins and check-outs. It answers the same questions the
// engine asks through attendance.Service.
type Service struct {
	identities database.IdentityReader
	events     database.AttendanceWriter
	rules      Rules
	metrics    *metrics.ServiceMetrics
	now        func() time.Time
}

// NewService creates an attendance service
func NewService(identities database.IdentityReader, events database.AttendanceWriter, rules Rules, m *metrics.ServiceMetrics) *Service {
	if rules.Cooldown < 0 {
		rules.Cooldown = constants.DefaultCooldownSeconds * time.Second
	}
	if rules.Location == nil {
		rules.Location = time.Local
	}
	if rules.Breaks == nil {
		rules.Breaks = &BreakClassifier{}
	}
	return &Service{
		identities: identities,
		events:     events,
		rules:      rules,
		metrics:    m,
		now:        time.Now,
	}
}

// LastEvent reports the identity's state; "cooldown" while the last event is
// younger than the cooldown.
func (s *Service) LastEvent(ctx context.Context, id string) (backend.LastEvent, error) {
	if _, err := s.identity(ctx, id); err != nil {
		return backend.LastEvent{}, err
	}
	last, err := s.events.LastEvent(ctx, id)
	if err != nil {
		return backend.LastEvent{}, fmt.Errorf("last event: %w", err)
	}
	if last == nil {
		return backend.LastEvent{Status: backend.StatusNone}, nil
	}

	at := last.At
	if s.inCooldown(last) {
		return backend.LastEvent{Status: backend.StatusCooldown, At: &at}, nil
	}
	if last.Kind == database.KindIn {
		return backend.LastEvent{Status: backend.StatusIn, At: &at}, nil
	}
	return backend.LastEvent{Status: backend.StatusOut, At: &at}, nil
}

// RecordIn stores a check-in. entryNumber counts today's check-ins including this one.
func (s *Service) RecordIn(ctx context.Context, id, name string) (*backend.CheckIn, error) {
	identity, err := s.identity(ctx, id)
	if err != nil {
		return nil, err
	}
	last, err := s.events.LastEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("last event: %w", err)
	}
	if s.inCooldown(last) {
		s.metrics.IncCooldown()
		return nil, ErrCooldown
	}
	if last != nil && last.Kind == database.KindIn {
		return nil, ErrAlreadyIn
	}

	now := s.now()
	today, err := s.today(ctx, id, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.events.AppendEvent(ctx, database.StoredAttendanceEvent{
		IdentityID: id,
		Name:       displayName(name, identity),
		Kind:       database.KindIn,
		At:         now,
	}); err != nil {
		return nil, fmt.Errorf("record in: %w", err)
	}
	s.metrics.IncAttendance(database.KindIn)

	entries := 1
	for _, ev := range today {
		if ev.Kind == database.KindIn {
			entries++
		}
	}
	return &backend.CheckIn{TimeIn: now, EntryNumber: entries}, nil
}

// RecordOut closes the open session and classifies the break
func (s *Service) RecordOut(ctx context.Context, id, name string) (*backend.CheckOut, error) {
	identity, err := s.identity(ctx, id)
	if err != nil {
		return nil, err
	}
	last, err := s.events.LastEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("last event: %w", err)
	}
	if s.inCooldown(last) {
		s.metrics.IncCooldown()
		return nil, ErrCooldown
	}
	if last == nil || last.Kind != database.KindIn {
		return nil, ErrNotCheckedIn
	}

	now := s.now()
	session := int64(now.Sub(last.At).Seconds())
	brk := s.rules.Breaks.Classify(now.In(s.rules.Location))

	today, err := s.today(ctx, id, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.events.AppendEvent(ctx, database.StoredAttendanceEvent{
		IdentityID:     id,
		Name:           displayName(name, identity),
		Kind:           database.KindOut,
		At:             now,
		SessionSeconds: session,
		BreakType:      brk.Type,
		BreakLabel:     brk.Label,
	}); err != nil {
		return nil, fmt.Errorf("record out: %w", err)
	}
	s.metrics.IncAttendance(database.KindOut)

	return &backend.CheckOut{
		TimeOut:         now,
		SessionDuration: session,
		BreakType:       brk.Type,
		BreakLabel:      brk.Label,
		TodayTotal:      completedSeconds(today) + session,
	}, nil
}

// DailySummary reports today's entries and worked time. An open session counts
// up to now.
func (s *Service) DailySummary(ctx context.Context, id string) (*backend.DailySummary, error) {
	if _, err := s.identity(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	today, err := s.today(ctx, id, now)
	if err != nil {
		return nil, err
	}
	last, err := s.events.LastEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("last event: %w", err)
	}

	summary := &backend.DailySummary{
		IdentityID:   id,
		Date:         now.In(s.rules.Location).Format(time.DateOnly),
		TotalSeconds: completedSeconds(today),
		Events:       make([]backend.AttendanceEvent, 0, len(today)),
	}
	for _, ev := range today {
		if ev.Kind == database.KindIn {
			summary.Entries++
		}
		summary.Events = append(summary.Events, ToAPIEvent(ev))
	}
	if last != nil && last.Kind == database.KindIn {
		summary.CurrentlyIn = true
		start := last.At
		if midnight := startOfDay(now, s.rules.Location); start.Before(midnight) {
			start = midnight
		}
		summary.TotalSeconds += int64(now.Sub(start).Seconds())
	}
	return summary, nil
}

// ToAPIEvent converts a stored event to its wire form
func ToAPIEvent(ev database.StoredAttendanceEvent) backend.AttendanceEvent {
	return backend.AttendanceEvent{
		ID:              strconv.FormatInt(ev.ID, 10),
		IdentityID:      ev.IdentityID,
		Name:            ev.Name,
		Kind:            ev.Kind,
		At:              ev.At,
		SessionDuration: ev.SessionSeconds,
		BreakType:       ev.BreakType,
		BreakLabel:      ev.BreakLabel,
	}
}

func (s *Service) identity(ctx context.Context, id string) (*database.StoredIdentity, error) {
	identity, err := s.identities.GetIdentity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

func (s *Service) inCooldown(last *database.StoredAttendanceEvent) bool {
	return last != nil && s.now().Sub(last.At) < s.rules.Cooldown
}

// today returns the identity's events since local midnight
func (s *Service) today(ctx context.Context, id string, now time.Time) ([]database.StoredAttendanceEvent, error) {
	from := startOfDay(now, s.rules.Location)
	events, err := s.events.EventsBetween(ctx, id, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("today's events: %w", err)
	}
	return events, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func completedSeconds(events []database.StoredAttendanceEvent) int64 {
	var total int64
	for _, ev := range events {
		if ev.Kind == database.KindOut {
			total += ev.SessionSeconds
		}
	}
	return total
}

func displayName(name string, identity *database.StoredIdentity) string {
	if name != "" {
		return name
	}
	return identity.Name
}
