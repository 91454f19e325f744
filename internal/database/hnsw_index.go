package database

import (
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/gatewatch/internal/facematch"
)

// SightingIndex wraps an HNSW graph over unknown sighting embeddings using
// Euclidean distance, the same metric the engine matches with.
type SightingIndex struct {
	graph        *hnsw.Graph[string]
	idToSighting map[string]*StoredSighting // Maps HNSW node key to sighting
	dim          int
	mu           sync.RWMutex
}

// NewSightingIndex creates a new empty index.
func NewSightingIndex() *SightingIndex {
	return &SightingIndex{
		idToSighting: make(map[string]*StoredSighting),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index content with the given sightings.
// Sightings without an embedding, or whose dimension differs from the first
// indexed one, are skipped.
func (h *SightingIndex) Build(sightings []StoredSighting) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.idToSighting = make(map[string]*StoredSighting, len(sightings))

	for i := range sightings {
		h.addLocked(&sightings[i])
	}
}

// Add inserts a single sighting
func (h *SightingIndex) Add(s *StoredSighting) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(s)
}

func (h *SightingIndex) addLocked(s *StoredSighting) {
	if len(s.Embedding) == 0 {
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
		h.dim = len(s.Embedding)
	}
	if len(s.Embedding) != h.dim {
		return
	}
	if _, exists := h.idToSighting[s.ID]; exists {
		// keys are immutable in the graph; keep the first embedding
		h.idToSighting[s.ID] = s
		return
	}
	h.graph.Add(hnsw.MakeNode(s.ID, s.Embedding))
	h.idToSighting[s.ID] = s
}

// Delete removes a sighting from search results.
func (h *SightingIndex) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.idToSighting, id)
	// Note: the node stays in the graph; lookups filter it out via idToSighting.
}

// Nearest returns the closest live sighting and its Euclidean distance.
// ok is false when the index is empty or the query dimension does not match.
func (h *SightingIndex) Nearest(query []float32) (s *StoredSighting, distance float64, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || len(h.idToSighting) == 0 || len(query) != h.dim {
		return nil, 0, false
	}

	k := min(HNSWSearchCandidates, h.graph.Len())
	best := math.MaxFloat64
	for _, n := range h.graph.Search(query, k) {
		candidate, live := h.idToSighting[n.Key]
		if !live {
			continue
		}
		if d := facematch.EuclideanDistance(query, n.Value); d < best {
			best = d
			s = candidate
		}
	}
	if s == nil {
		return h.scanLocked(query)
	}
	return s, best, true
}

// scanLocked is the exhaustive fallback used when every graph candidate was deleted.
func (h *SightingIndex) scanLocked(query []float32) (*StoredSighting, float64, bool) {
	var best *StoredSighting
	bestDist := math.MaxFloat64
	for _, s := range h.idToSighting {
		if d := facematch.EuclideanDistance(query, s.Embedding); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist, best != nil
}

// Get returns the indexed sighting for an ID
func (h *SightingIndex) Get(id string) *StoredSighting {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToSighting[id]
}

// Count returns the number of live sightings
func (h *SightingIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToSighting)
}
