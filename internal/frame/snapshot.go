package frame

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/gatewatch/internal/constants"
)

const maxSnapshotSize = 16 << 20

// SnapshotSource polls a camera snapshot URL and keeps the latest decoded frame.
// Polling runs in Run; CurrentFrame never touches the network.
type SnapshotSource struct {
	url      string
	interval time.Duration
	maxAge   time.Duration
	client   *http.Client
	logger   *slog.Logger
	maxW     int
	maxH     int

	mu         sync.RWMutex
	latest     image.Image
	capturedAt time.Time
	failures   int
}

// NewSnapshotSource creates a poller. A zero interval uses 40ms.
func NewSnapshotSource(url string, interval time.Duration, logger *slog.Logger) *SnapshotSource {
	if interval <= 0 {
		interval = constants.DefaultSampleIntervalMillis * time.Millisecond
	}
	return &SnapshotSource{
		url:      url,
		interval: interval,
		maxAge:   max(2*time.Second, 50*interval),
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// SetMaxSize downscales captured frames to fit within w x h. Call before Run.
func (s *SnapshotSource) SetMaxSize(w, h int) {
	s.maxW, s.maxH = w, h
}

// Run polls until ctx is cancelled. Failures are logged once per streak.
func (s *SnapshotSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *SnapshotSource) poll(ctx context.Context) {
	img, err := s.Grab(ctx)
	if err == nil && s.maxW > 0 && s.maxH > 0 {
		img = Fit(img, s.maxW, s.maxH)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil && s.failures == 0 {
			s.logger.Warn("snapshot failed", "url", s.url, "error", err)
		}
		s.failures++
		return
	}
	if s.failures > 0 {
		s.logger.Info("snapshot recovered", "url", s.url, "failed_polls", s.failures)
	}
	s.failures = 0
	s.latest = img
	s.capturedAt = time.Now()
}

// Grab fetches and decodes a single snapshot
func (s *SnapshotSource) Grab(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

// CurrentFrame returns the latest frame, or an error when none is fresh
func (s *SnapshotSource) CurrentFrame(context.Context) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoFrame
	}
	if age := time.Since(s.capturedAt); age > s.maxAge {
		return nil, fmt.Errorf("%w: captured %s ago", ErrStaleFrame, age.Round(time.Millisecond))
	}
	return s.latest, nil
}
