// Package monitor runs the periodic match-and-update cycle. A Monitor owns at
// most one Session; all presence and unknown-cache state lives in the session
// and is dropped when monitoring stops.
package monitor

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/gatewatch/internal/attendance"
	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/detector"
	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/facematch"
	"github.com/kozaktomas/gatewatch/internal/metrics"
	"github.com/kozaktomas/gatewatch/internal/overlay"
	"github.com/kozaktomas/gatewatch/internal/presence"
	"github.com/kozaktomas/gatewatch/internal/unknown"
)

var (
	ErrAlreadyRunning = errors.New("monitoring already running")
	ErrNotRunning     = errors.New("monitoring not running")
)

// FrameSource returns the most recent camera frame
type FrameSource interface {
	CurrentFrame(ctx context.Context) (image.Image, error)
}

// Extractor finds faces and their embeddings. Zero faces is not an error.
type Extractor interface {
	Detect(ctx context.Context, frame image.Image) ([]detector.Detection, error)
}

// Gallery lists the enrolled identities
type Gallery interface {
	ListIdentities(ctx context.Context) ([]backend.Identity, error)
}

// Deps are the collaborators of the engine
type Deps struct {
	Frames     FrameSource
	Extractor  Extractor
	Gallery    Gallery
	Attendance attendance.Service
	Unknowns   unknown.Reporter
	Events     events.Sink
	Metrics    *metrics.EngineMetrics
	Logger     *slog.Logger
}

// Options tune the engine
type Options struct {
	CyclePeriod     time.Duration
	ClearAfter      int
	Thresholds      facematch.Thresholds
	UnknownTTL      time.Duration
	SignaturePrefix int
	CropMargin      int
	SnapshotDir     string
}

// OptionsFromConfig maps the engine configuration to Options
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		CyclePeriod: cfg.CyclePeriod,
		ClearAfter:  cfg.ClearAfter,
		Thresholds: facematch.Thresholds{
			MaxDistance:          cfg.RecognizeDistance,
			RecognizedConfidence: cfg.RecognizedConfidence,
			UncertainConfidence:  cfg.UncertainConfidence,
		},
		UnknownTTL:      cfg.UnknownTTL,
		SignaturePrefix: cfg.SignaturePrefix,
		CropMargin:      cfg.CropMargin,
		SnapshotDir:     cfg.SnapshotDir,
	}
}

// Monitor starts and stops monitoring sessions
type Monitor struct {
	deps    Deps
	opts    Options
	matcher *facematch.Matcher
	toggler *attendance.Toggler
	logger  *slog.Logger

	mu      sync.Mutex
	session *Session
	cancel  context.CancelFunc

	status atomic.Pointer[Status]
}

// New creates a stopped monitor
func New(deps Deps, opts Options) *Monitor {
	if opts.CyclePeriod <= 0 {
		opts.CyclePeriod = constants.DefaultCyclePeriodMillis * time.Millisecond
	}
	if opts.Thresholds == (facematch.Thresholds{}) {
		opts.Thresholds = facematch.DefaultThresholds()
	}
	if deps.Events == nil {
		deps.Events = events.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	m := &Monitor{
		deps:    deps,
		opts:    opts,
		matcher: facematch.NewMatcher(opts.Thresholds),
		toggler: attendance.NewToggler(deps.Attendance),
		logger:  deps.Logger.With("component", "monitor"),
	}
	m.status.Store(&Status{Present: []PresentIdentity{}, Projection: overlay.Project(nil, overlay.State{})})
	return m
}

// Start creates a new session and begins ticking. ctx bounds the session's lifetime.
func (m *Monitor) Start(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return nil, ErrAlreadyRunning
	}

	s := m.newSession()
	loopCtx, cancel := context.WithCancel(ctx)
	m.session = s
	m.cancel = cancel

	s.emit(events.Event{Type: events.MonitorStarted, Message: "monitoring started"})
	m.publishStatus(s, overlay.Project(nil, overlay.State{Active: true}), nil, 0)

	s.wg.Add(1)
	go s.loop(loopCtx, context.WithoutCancel(ctx), m.opts.CyclePeriod)

	m.logger.Info("monitoring started", "session", s.ID, "period", m.opts.CyclePeriod)
	return s, nil
}

// Stop cancels the timer, clears the session state and waits for an in-flight
// cycle to finish. Results of that cycle are discarded.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	s, cancel := m.session, m.cancel
	m.session, m.cancel = nil, nil
	m.mu.Unlock()

	if s == nil {
		return ErrNotRunning
	}

	cancel()
	s.deactivate()
	s.wg.Wait()

	m.deps.Events.Emit(events.Event{
		Type:      events.MonitorStopped,
		Time:      time.Now(),
		SessionID: s.ID,
		Message:   "monitoring stopped",
	})
	m.status.Store(&Status{
		SessionID:  s.ID,
		Present:    []PresentIdentity{},
		Projection: overlay.Project(nil, overlay.State{}),
		UpdatedAt:  time.Now(),
	})
	m.logger.Info("monitoring stopped", "session", s.ID, "cycles", s.Cycles())
	return nil
}

// Run starts monitoring and stops when ctx is cancelled. A session stopped
// in the meantime through Stop is not an error.
func (m *Monitor) Run(ctx context.Context) error {
	if _, err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := m.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return nil
}

// Running reports whether a session is active
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Session returns the active session or nil
func (m *Monitor) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Status returns the latest published status
func (m *Monitor) Status() Status {
	return *m.status.Load()
}

func (m *Monitor) newSession() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		m:         m,
		tracker:   presence.NewTracker(m.opts.ClearAfter),
		unknowns: unknown.NewDeduplicator(m.deps.Unknowns, unknown.Options{
			TTL:        m.opts.UnknownTTL,
			PrefixLen:  m.opts.SignaturePrefix,
			CropMargin: m.opts.CropMargin,
		}),
		names: make(map[string]string),
	}
	s.active.Store(true)
	return s
}
