package timesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/gatewatch/internal/config"
)

// BreakClassifier labels a check-out by the local clock time it happened at
type BreakClassifier struct {
	fallback config.BreakType
	windows  []breakWindow
}

type breakWindow struct {
	kind       config.BreakType
	start, end int // minutes after midnight, end exclusive
}

// NewBreakClassifier parses the configured windows. Windows are checked in
// order and the first match wins; times outside every window get fallback.
func NewBreakClassifier(fallback config.BreakType, windows []config.BreakWindow) (*BreakClassifier, error) {
	c := &BreakClassifier{fallback: fallback}
	for _, w := range windows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("break window %s: %w", w.Type, err)
		}
		end, err := parseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("break window %s: %w", w.Type, err)
		}
		if end <= start {
			return nil, fmt.Errorf("break window %s: end %s is not after start %s", w.Type, w.End, w.Start)
		}
		c.windows = append(c.windows, breakWindow{
			kind:  config.BreakType{Type: w.Type, Label: w.Label},
			start: start,
			end:   end,
		})
	}
	return c, nil
}

// Classify returns the break type for a check-out at t. t should already be in
// the service timezone.
func (c *BreakClassifier) Classify(t time.Time) config.BreakType {
	minute := t.Hour()*60 + t.Minute()
	for _, w := range c.windows {
		if minute >= w.start && minute < w.end {
			return w.kind
		}
	}
	return c.fallback
}

// parseClock parses "HH:MM" into minutes after midnight
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
