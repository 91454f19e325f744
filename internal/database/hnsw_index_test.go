package database

import (
	"fmt"
	"math"
	"testing"
)

func TestSightingIndex_Nearest(t *testing.T) {
	idx := NewSightingIndex()
	if _, _, ok := idx.Nearest([]float32{1, 0}); ok {
		t.Fatal("expected no result from empty index")
	}

	idx.Build([]StoredSighting{
		{ID: "a", Embedding: []float32{0, 0}},
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{0, 5}},
		{ID: "skip", Embedding: nil},
		{ID: "wrong-dim", Embedding: []float32{1, 2, 3}},
	})
	if idx.Count() != 3 {
		t.Fatalf("expected 3 indexed sightings, got %d", idx.Count())
	}

	s, d, ok := idx.Nearest([]float32{0.9, 0.1})
	if !ok || s.ID != "b" {
		t.Fatalf("expected nearest b, got %+v ok=%v", s, ok)
	}
	if math.Abs(d-math.Sqrt(0.02)) > 1e-6 {
		t.Errorf("unexpected distance %f", d)
	}

	if _, _, ok := idx.Nearest([]float32{1, 2, 3}); ok {
		t.Error("expected no result for mismatched dimension")
	}
}

func TestSightingIndex_DeleteAndAdd(t *testing.T) {
	idx := NewSightingIndex()
	idx.Add(&StoredSighting{ID: "a", Embedding: []float32{0, 0}})
	idx.Add(&StoredSighting{ID: "b", Embedding: []float32{3, 0}})

	idx.Delete("a")
	if idx.Get("a") != nil {
		t.Error("deleted sighting still returned by Get")
	}

	s, d, ok := idx.Nearest([]float32{0, 0})
	if !ok || s.ID != "b" || math.Abs(d-3) > 1e-9 {
		t.Fatalf("expected b at distance 3, got %+v d=%f ok=%v", s, d, ok)
	}

	idx.Delete("b")
	if _, _, ok := idx.Nearest([]float32{0, 0}); ok {
		t.Error("expected no result when every sighting is deleted")
	}
}

func TestSightingIndex_ManySightings(t *testing.T) {
	idx := NewSightingIndex()
	var sightings []StoredSighting
	for i := range 200 {
		sightings = append(sightings, StoredSighting{
			ID:        fmt.Sprintf("s%d", i),
			Embedding: []float32{float32(i), float32(i % 7)},
		})
	}
	idx.Build(sightings)

	s, _, ok := idx.Nearest([]float32{120, 1})
	if !ok {
		t.Fatal("expected a result")
	}
	if s.ID != "s120" {
		t.Errorf("expected s120, got %s", s.ID)
	}
}
