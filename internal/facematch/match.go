package facematch

import (
	"math"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/detector"
)

// ClassifyTier applies t to a distance and confidence pair.
func (t Thresholds) ClassifyTier(distance, confidence float64) Tier {
	if distance >= t.MaxDistance {
		return Unrecognized
	}
	switch {
	case confidence >= t.RecognizedConfidence:
		return Recognized
	case confidence >= t.UncertainConfidence:
		return Uncertain
	default:
		return Unrecognized
	}
}

// ClassifyTier classifies with DefaultThresholds.
func ClassifyTier(distance, confidence float64) Tier {
	return DefaultThresholds().ClassifyTier(distance, confidence)
}

// Matcher matches detections against a gallery
type Matcher struct {
	Thresholds Thresholds
}

// NewMatcher creates a matcher with the given thresholds
func NewMatcher(t Thresholds) *Matcher {
	return &Matcher{Thresholds: t}
}

// Match finds the single nearest gallery identity for det.
// Ties keep the first identity in gallery order.
func (m *Matcher) Match(det detector.Detection, gallery []backend.Identity) Result {
	result := Result{
		Detection: det,
		Distance:  math.Inf(1),
		Tier:      Unrecognized,
	}
	if len(gallery) == 0 {
		return result
	}

	bestIdx := -1
	bestDist := math.Inf(1)
	for i := range gallery {
		d := EuclideanDistance(det.Embedding, gallery[i].Embedding)
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return result
	}

	result.Best = &gallery[bestIdx]
	result.Distance = bestDist
	result.Confidence = Confidence(bestDist)
	result.Tier = m.Thresholds.ClassifyTier(bestDist, result.Confidence)
	return result
}

// MatchAll matches every detection, preserving detection order
func (m *Matcher) MatchAll(dets []detector.Detection, gallery []backend.Identity) []Result {
	results := make([]Result, 0, len(dets))
	for _, det := range dets {
		results = append(results, m.Match(det, gallery))
	}
	return results
}
