package database

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWSearchCandidates is how many neighbours are requested from the graph so
	// that deleted nodes can be filtered out and a live one still returned.
	HNSWSearchCandidates = 8
)
