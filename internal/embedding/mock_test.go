package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_DeterministicUnitVectors(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "data engineer")
	b, _ := e.Embed(ctx, "data engineer")
	c, _ := e.Embed(ctx, "pastry chef")

	var norm float64
	same, differs := true, false
	for i := range a {
		norm += float64(a[i]) * float64(a[i])
		if a[i] != b[i] {
			same = false
		}
		if a[i] != c[i] {
			differs = true
		}
	}
	if !same {
		t.Error("same text should embed identically")
	}
	if !differs {
		t.Error("different text should embed differently")
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("norm=%v, want 1", norm)
	}
}

func TestMockEmbedder_Blank(t *testing.T) {
	vec, _ := NewMockEmbedder(3).Embed(context.Background(), " ")
	if len(vec) != 3 || vec[0] != 0 || vec[1] != 0 || vec[2] != 0 {
		t.Errorf("vec=%v, want zeros", vec)
	}
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("default dimensions should be 384")
	}
}
