// Package facematch provides the descriptor matching used by the monitoring engine:
// nearest-neighbour search over the gallery, confidence and tier classification.
package facematch

import (
	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/detector"
)

// Tier classifies a match result. Tiers are mutually exclusive.
type Tier int

const (
	Unrecognized Tier = iota
	Uncertain
	Recognized
)

func (t Tier) String() string {
	switch t {
	case Recognized:
		return "recognized"
	case Uncertain:
		return "uncertain"
	default:
		return "unrecognized"
	}
}

// Thresholds bound the Recognized and Uncertain tiers
type Thresholds struct {
	MaxDistance          float64 // exclusive
	RecognizedConfidence float64 // inclusive
	UncertainConfidence  float64 // inclusive
}

// DefaultThresholds returns 0.5 / 50% / 40%
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxDistance:          constants.DefaultRecognizeDistance,
		RecognizedConfidence: constants.DefaultRecognizedConfidence,
		UncertainConfidence:  constants.DefaultUncertainConfidence,
	}
}

// Result is the outcome of matching one detection against the gallery
type Result struct {
	Detection  detector.Detection
	Best       *backend.Identity // nil when the gallery is empty
	Distance   float64
	Confidence float64 // (1 - distance) * 100, unclamped
	Tier       Tier
}

// Name returns the matched identity name, or "" without a match
func (r Result) Name() string {
	if r.Best == nil {
		return ""
	}
	return r.Best.Name
}
