package embedding

import "testing"

func TestPool_Pooled(t *testing.T) {
	out, err := pool([]float32{1, 2, 3}, []int64{1, 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[2] != 3 {
		t.Errorf("out=%v", out)
	}
}

func TestPool_MeanOverMask(t *testing.T) {
	data := []float32{
		1, 1,
		3, 5,
		100, 100, // padding
	}
	out, err := pool(data, []int64{1, 3, 2}, []int64{1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 2 || out[1] != 3 {
		t.Errorf("out=%v, want [2 3]", out)
	}
}

func TestPool_BadShape(t *testing.T) {
	if _, err := pool([]float32{1}, []int64{4}, nil); err == nil {
		t.Error("expected error for rank 1")
	}
	if _, err := pool([]float32{1}, []int64{1, 4}, nil); err == nil {
		t.Error("expected error for short data")
	}
}
