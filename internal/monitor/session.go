package monitor

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/gatewatch/internal/attendance"
	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/detector"
	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/facematch"
	"github.com/kozaktomas/gatewatch/internal/overlay"
	"github.com/kozaktomas/gatewatch/internal/presence"
	"github.com/kozaktomas/gatewatch/internal/unknown"
)

// Session is one start-to-stop monitoring run. Presence and the unknown
// signature cache belong to the session and never outlive it.
type Session struct {
	ID        string
	StartedAt time.Time

	m  *Monitor
	wg sync.WaitGroup

	active atomic.Bool
	busy   atomic.Bool
	cycles atomic.Uint64

	// mu guards tracker and names
	mu       sync.Mutex
	tracker  *presence.Tracker
	names    map[string]string
	unknowns *unknown.Deduplicator
}

// CycleReport summarises one cycle. Aborted is set when the cycle stopped early
// because of a gallery failure or because the session was stopped.
type CycleReport struct {
	Detections int
	Results    []facematch.Result
	Update     presence.Update
	Toggles    []attendance.Outcome
	Unknowns   []unknown.Outcome
	Projection overlay.Projection
	Aborted    bool
	Err        error
}

// Active reports whether the session still accepts results
func (s *Session) Active() bool {
	return s.active.Load()
}

// Cycles returns the number of cycles that ran to completion
func (s *Session) Cycles() uint64 {
	return s.cycles.Load()
}

// Present returns the identities currently in view
func (s *Session) Present() []PresentIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presentLocked()
}

func (s *Session) presentLocked() []PresentIdentity {
	ids := s.tracker.Present()
	out := make([]PresentIdentity, 0, len(ids))
	for _, id := range ids {
		out = append(out, PresentIdentity{ID: id, Name: s.names[id]})
	}
	return out
}

func (s *Session) deactivate() {
	s.active.Store(false)
	s.mu.Lock()
	s.tracker.Clear()
	s.mu.Unlock()
	s.unknowns.Close()
}

func (s *Session) loop(ctx, cycleCtx context.Context, period time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	s.tick(cycleCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.tick(cycleCtx)
		}
	}
}

// tick starts a cycle unless the previous one is still running
func (s *Session) tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.m.deps.Metrics.IncSkipped()
		s.emit(events.Event{Type: events.CycleSkipped, Message: "previous cycle still running"})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.RunCycle(ctx)
	}()
}

// RunCycle performs one frame-to-status cycle. Callers must not run two cycles
// of the same session concurrently; the ticker guarantees this.
func (s *Session) RunCycle(ctx context.Context) CycleReport {
	start := time.Now()
	deps := s.m.deps

	if !s.Active() {
		return CycleReport{Aborted: true}
	}

	frame, dets := s.detect(ctx)
	if !s.Active() {
		return CycleReport{Detections: len(dets), Aborted: true}
	}

	if len(dets) == 0 {
		return s.emptyCycle(start)
	}

	report := CycleReport{Detections: len(dets)}

	gallery, err := deps.Gallery.ListIdentities(ctx)
	if err != nil {
		deps.Metrics.IncError("gallery")
		s.m.logger.Warn("gallery fetch failed, skipping cycle", "error", err)
		s.emit(events.Event{Type: events.GalleryError, Message: err.Error()})
		s.mu.Lock()
		present := s.presentLocked()
		streak := s.tracker.Streak()
		s.mu.Unlock()
		report.Projection = overlay.Project(nil, overlay.State{
			Active:        true,
			PresentNames:  names(present),
			AbsenceStreak: streak,
			GalleryError:  true,
		})
		s.publish(report.Projection, present, streak)
		report.Aborted = true
		report.Err = err
		return report
	}

	results := s.m.matcher.MatchAll(dets, gallery)
	report.Results = results

	var recognized []string
	for _, r := range results {
		deps.Metrics.AddDetection(r.Tier.String())
		if r.Tier == facematch.Recognized {
			recognized = append(recognized, r.Best.ID)
		}
	}

	s.mu.Lock()
	if !s.Active() {
		s.mu.Unlock()
		report.Aborted = true
		return report
	}
	s.rememberNames(gallery)
	report.Update = s.tracker.Observe(len(dets), recognized)
	s.mu.Unlock()

	for _, id := range report.Update.Entered {
		s.emit(events.Event{Type: events.EntryObserved, IdentityID: id, Name: s.nameOf(id)})
	}
	for _, id := range report.Update.Departed {
		s.emit(events.Event{Type: events.Departed, IdentityID: id, Name: s.nameOf(id)})
	}

	for _, id := range report.Update.Entered {
		if !s.Active() {
			report.Aborted = true
			return report
		}
		if out, ok := s.toggle(ctx, id, s.nameOf(id)); ok {
			report.Toggles = append(report.Toggles, out)
		}
	}

	for _, r := range results {
		if r.Tier != facematch.Unrecognized {
			continue
		}
		if !s.Active() {
			report.Aborted = true
			return report
		}
		out, err := s.unknowns.Handle(ctx, frame, r.Detection, facematch.DisplayConfidence(r.Confidence))
		if !s.Active() {
			report.Aborted = true
			return report
		}
		s.handleUnknown(out, err)
		report.Unknowns = append(report.Unknowns, out)
	}

	s.mu.Lock()
	present := s.presentLocked()
	streak := s.tracker.Streak()
	s.mu.Unlock()

	report.Projection = overlay.Project(results, overlay.State{
		Active:        true,
		PresentNames:  names(present),
		AbsenceStreak: streak,
	})
	if !s.Active() {
		report.Aborted = true
		return report
	}
	s.publish(report.Projection, present, streak)
	s.writeSnapshot(frame, report.Projection)

	s.unknowns.Sweep()
	s.finish(start, len(present), streak)
	return report
}

// detect returns the current frame and its faces. Frame and detector failures
// are treated as a frame without faces.
func (s *Session) detect(ctx context.Context) (image.Image, []detector.Detection) {
	deps := s.m.deps

	frame, err := deps.Frames.CurrentFrame(ctx)
	if err != nil {
		deps.Metrics.IncError("frame")
		s.m.logger.Debug("no usable frame", "error", err)
		return nil, nil
	}

	dets, err := deps.Extractor.Detect(ctx, frame)
	if err != nil {
		deps.Metrics.IncError("detector")
		s.m.logger.Warn("face detection failed", "error", err)
		s.emit(events.Event{Type: events.DetectionError, Message: err.Error()})
		return frame, nil
	}
	return frame, dets
}

func (s *Session) emptyCycle(start time.Time) CycleReport {
	s.mu.Lock()
	if !s.Active() {
		s.mu.Unlock()
		return CycleReport{Aborted: true}
	}
	upd := s.tracker.Observe(0, nil)
	present := s.presentLocked()
	s.mu.Unlock()

	if upd.RoomCleared {
		s.m.deps.Metrics.IncRoomClear()
		s.emit(events.Event{Type: events.RoomCleared, Message: "room cleared"})
	}

	proj := overlay.Project(nil, overlay.State{
		Active:        true,
		PresentNames:  names(present),
		AbsenceStreak: upd.AbsenceStreak,
	})
	s.publish(proj, present, upd.AbsenceStreak)
	s.unknowns.Sweep()
	s.finish(start, len(present), upd.AbsenceStreak)
	return CycleReport{Update: upd, Projection: proj}
}

func (s *Session) toggle(ctx context.Context, id, name string) (attendance.Outcome, bool) {
	deps := s.m.deps

	out, err := s.m.toggler.Toggle(ctx, id, name)
	if !s.Active() {
		return out, false
	}
	if err != nil {
		deps.Metrics.IncError("attendance")
		s.m.logger.Error("attendance toggle failed", "identity", id, "error", err)
		s.emit(events.Event{Type: events.AttendanceFailed, IdentityID: id, Name: name, Message: err.Error()})
		return out, false
	}

	deps.Metrics.IncToggle(string(out.Action))
	ev := events.Event{IdentityID: id, Name: name, Message: out.Message}
	switch out.Action {
	case attendance.ActionIn:
		ev.Type = events.CheckedIn
		ev.Data = out.CheckIn
	case attendance.ActionOut:
		ev.Type = events.CheckedOut
		ev.Data = out.CheckOut
	default:
		ev.Type = events.ToggleSkipped
	}
	s.emit(ev)
	return out, true
}

func (s *Session) handleUnknown(out unknown.Outcome, err error) {
	deps := s.m.deps

	switch {
	case err != nil:
		deps.Metrics.IncUnknown("failed")
		s.m.logger.Warn("unknown face report failed", "signature", out.Key, "error", err)
		s.emit(events.Event{Type: events.UnknownFailed, Message: err.Error()})
	case out.Suppressed:
		deps.Metrics.IncUnknown("suppressed")
	case out.Result != nil:
		result := "repeat"
		if out.Result.IsNew {
			result = "new"
		}
		deps.Metrics.IncUnknown(result)
		s.emit(events.Event{
			Type:    events.UnknownLogged,
			Name:    out.Result.DisplayName,
			Message: unknownMessage(out.Result),
			Data:    out.Result,
		})
	}
}

func (s *Session) rememberNames(gallery []backend.Identity) {
	clear(s.names)
	for _, id := range gallery {
		s.names[id.ID] = id.Name
	}
}

func (s *Session) nameOf(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.names[id]; ok && name != "" {
		return name
	}
	return id
}

func (s *Session) emit(e events.Event) {
	if !s.Active() {
		return
	}
	e.Time = time.Now()
	e.SessionID = s.ID
	s.m.deps.Events.Emit(e)
}

func (s *Session) publish(proj overlay.Projection, present []PresentIdentity, streak int) {
	if !s.Active() {
		return
	}
	st := s.m.publishStatus(s, proj, present, streak)
	s.emit(events.Event{Type: events.Status, Message: proj.Status, Data: st})
}

func (s *Session) finish(start time.Time, present, streak int) {
	s.cycles.Add(1)
	s.m.deps.Metrics.ObserveCycle(time.Since(start))
	s.m.deps.Metrics.SetPresence(present, streak)
}

func unknownMessage(r *backend.UnknownResult) string {
	if r.IsNew {
		return "new unknown face: " + r.DisplayName
	}
	return r.DisplayName + " seen again"
}

func names(present []PresentIdentity) []string {
	out := make([]string, 0, len(present))
	for _, p := range present {
		out = append(out, p.Name)
	}
	return out
}
