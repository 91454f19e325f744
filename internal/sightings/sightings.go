// Package sightings keeps the register of unknown people seen by the engine.
// A reported face that lies close to an existing sighting is counted as a
// repeat detection of that person instead of a new entry.
package sightings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/database"
	"github.com/kozaktomas/gatewatch/internal/metrics"
)

var (
	ErrEmptyEmbedding = errors.New("embedding is required")
	ErrNotFound       = errors.New("sighting not found")
)

// Registry stores unknown sightings and re-identifies repeat visitors
type Registry struct {
	repo        database.SightingWriter
	index       *database.SightingIndex
	maxDistance float64
	metrics     *metrics.ServiceMetrics
	logger      *slog.Logger
	now         func() time.Time

	mu sync.Mutex // serializes lookup-then-create
}

// NewRegistry creates a registry. A non-positive maxDistance uses the default.
func NewRegistry(repo database.SightingWriter, maxDistance float64, m *metrics.ServiceMetrics, logger *slog.Logger) *Registry {
	if maxDistance <= 0 {
		maxDistance = constants.DefaultReidentifyDistance
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		repo:        repo,
		index:       database.NewSightingIndex(),
		maxDistance: maxDistance,
		metrics:     m,
		logger:      logger.With("component", "sightings"),
		now:         time.Now,
	}
}

// Load rebuilds the in-memory index from the repository
func (r *Registry) Load(ctx context.Context) error {
	all, err := r.repo.AllSightings(ctx)
	if err != nil {
		return fmt.Errorf("load sightings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index.Build(all)
	r.metrics.SetIndexSize(r.index.Count())
	r.logger.Info("sighting index loaded", "count", r.index.Count())
	return nil
}

// LogUnknown records a report. The closest sighting within maxDistance gets a
// repeat detection; otherwise a new numbered sighting is created.
func (r *Registry) LogUnknown(ctx context.Context, report backend.UnknownReport) (*backend.UnknownResult, error) {
	if len(report.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if match, dist, ok := r.index.Nearest(report.Embedding); ok && dist < r.maxDistance {
		updated, err := r.repo.RecordDetection(ctx, match.ID, report.Confidence, report.Image, now)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("record detection: %w", err)
			}
			// deleted behind our back; fall through and register anew
			r.index.Delete(match.ID)
		} else {
			r.index.Add(updated)
			r.metrics.IncSighting(false)
			r.logger.Debug("repeat sighting", "id", updated.ID, "distance", dist, "detections", updated.Detections)
			return &backend.UnknownResult{
				IsNew:           false,
				DisplayName:     DisplayName(updated.Number),
				Timestamp:       now,
				TotalDetections: updated.Detections,
			}, nil
		}
	}

	created, err := r.repo.CreateSighting(ctx, database.StoredSighting{
		Embedding:  report.Embedding,
		Confidence: report.Confidence,
		Image:      report.Image,
		FirstSeen:  now,
		LastSeen:   now,
		Detections: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sighting: %w", err)
	}
	r.index.Add(created)
	r.metrics.IncSighting(true)
	r.metrics.SetIndexSize(r.index.Count())
	r.logger.Info("new sighting", "id", created.ID, "name", DisplayName(created.Number))

	return &backend.UnknownResult{
		IsNew:           true,
		DisplayName:     DisplayName(created.Number),
		Timestamp:       now,
		TotalDetections: created.Detections,
	}, nil
}

// List returns up to limit sightings, most recently seen first
func (r *Registry) List(ctx context.Context, limit int) ([]backend.Sighting, error) {
	stored, err := r.repo.ListSightings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sightings: %w", err)
	}
	result := make([]backend.Sighting, 0, len(stored))
	for _, s := range stored {
		result = append(result, ToAPISighting(s))
	}
	return result, nil
}

// Delete removes a sighting
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repo.DeleteSighting(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete sighting: %w", err)
	}
	r.index.Delete(id)
	r.metrics.SetIndexSize(r.index.Count())
	return nil
}

// Count returns the number of indexed sightings
func (r *Registry) Count() int {
	return r.index.Count()
}

// DisplayName formats the sequential name of a sighting
func DisplayName(number int64) string {
	return "Unknown #" + strconv.FormatInt(number, 10)
}

// ToAPISighting converts a stored sighting to its wire form
func ToAPISighting(s database.StoredSighting) backend.Sighting {
	return backend.Sighting{
		ID:          s.ID,
		DisplayName: DisplayName(s.Number),
		Confidence:  s.Confidence,
		Image:       s.Image,
		FirstSeen:   s.FirstSeen,
		LastSeen:    s.LastSeen,
		Detections:  s.Detections,
	}
}
