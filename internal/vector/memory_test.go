package vector

import (
	"context"
	"testing"
)

func TestMemoryIndex_CopiesInput(t *testing.T) {
	idx, _ := NewMemoryIndex(0)
	ctx := context.Background()
	vec := []float32{1, 0}
	mustUpsert(t, idx, "a", vec)
	vec[0], vec[1] = 0, 1

	got, _ := idx.Query(ctx, []float32{1, 0}, 1)
	if got[0].Distance > 1e-9 {
		t.Errorf("stored vector changed with caller slice: distance=%v", got[0].Distance)
	}
}

func TestMemoryIndex_DimensionEstablishedByFirstUpsert(t *testing.T) {
	idx, _ := NewMemoryIndex(0)
	if idx.Dimensions() != 0 {
		t.Fatalf("Dimensions=%d before upsert", idx.Dimensions())
	}
	mustUpsert(t, idx, "a", []float32{1, 2, 3})
	if idx.Dimensions() != 3 {
		t.Errorf("Dimensions=%d, want 3", idx.Dimensions())
	}
}
