package vector

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

type indexFactory func(t *testing.T, dims int) Index

func localStrategies() map[string]indexFactory {
	return map[string]indexFactory{
		"memory": func(t *testing.T, dims int) Index {
			idx, err := NewMemoryIndex(dims)
			if err != nil {
				t.Fatal(err)
			}
			return idx
		},
		"indexed": func(t *testing.T, dims int) Index {
			idx, err := NewBoltIndex(t.TempDir(), dims)
			if err != nil {
				t.Fatal(err)
			}
			return idx
		},
		"bruteforce": func(t *testing.T, dims int) Index {
			idx, err := NewFlatIndex(t.TempDir(), dims)
			if err != nil {
				t.Fatal(err)
			}
			return idx
		},
	}
}

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is s.
func unitAt(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s))}
}

func forEachStrategy(t *testing.T, dims int, fn func(t *testing.T, idx Index)) {
	for name, factory := range localStrategies() {
		t.Run(name, func(t *testing.T) {
			idx := factory(t, dims)
			defer idx.Close()
			fn(t, idx)
		})
	}
}

func mustUpsert(t *testing.T, idx Index, id string, vec []float32) {
	t.Helper()
	if err := idx.Upsert(context.Background(), id, vec); err != nil {
		t.Fatalf("Upsert(%q): %v", id, err)
	}
}

func TestIndex_QueryOrdersByDistance(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		ctx := context.Background()
		mustUpsert(t, idx, "B", unitAt(0.5))
		mustUpsert(t, idx, "A", unitAt(0.9))
		mustUpsert(t, idx, "C", unitAt(0.1))

		got, err := idx.Query(ctx, []float32{1, 0}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("len=%d, want 2", len(got))
		}
		want := []struct {
			id   string
			dist float64
		}{{"A", 0.1}, {"B", 0.5}}
		for i, w := range want {
			if got[i].ID != w.id {
				t.Errorf("got[%d].ID=%q, want %q", i, got[i].ID, w.id)
			}
			if math.Abs(got[i].Distance-w.dist) > 1e-6 {
				t.Errorf("got[%d].Distance=%v, want %v", i, got[i].Distance, w.dist)
			}
		}

		all, err := idx.Query(ctx, []float32{1, 0}, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 || all[2].ID != "C" {
			t.Errorf("Query(k=10)=%v, want 3 results ending with C", all)
		}
	})
}

func TestIndex_EmptyIndex(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		ctx := context.Background()
		for _, k := range []int{0, 1, 5} {
			got, err := idx.Query(ctx, []float32{1, 0, 0}, k)
			if err != nil {
				t.Fatalf("Query(k=%d): %v", k, err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Query(k=%d)=%v, want empty non-nil slice", k, got)
			}
		}
		if n, _ := idx.Count(ctx); n != 0 {
			t.Errorf("Count=%d, want 0", n)
		}
		ids, err := idx.ListIDs(ctx)
		if err != nil || len(ids) != 0 {
			t.Errorf("ListIDs=%v, %v", ids, err)
		}
	})
}

func TestIndex_NonPositiveK(t *testing.T) {
	forEachStrategy(t, 2, func(t *testing.T, idx Index) {
		mustUpsert(t, idx, "a", []float32{1, 0})
		for _, k := range []int{0, -3} {
			got, err := idx.Query(context.Background(), []float32{1, 0}, k)
			if err != nil || len(got) != 0 {
				t.Errorf("Query(k=%d)=%v, %v; want empty", k, got, err)
			}
		}
	})
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		for _, id := range []string{"x", "y", "z"} {
			mustUpsert(t, idx, id, []float32{0.6, 0.8})
		}
		got, err := idx.Query(context.Background(), []float32{1, 0}, 3)
		if err != nil {
			t.Fatal(err)
		}
		for i, id := range []string{"x", "y", "z"} {
			if got[i].ID != id {
				t.Errorf("got[%d]=%q, want %q", i, got[i].ID, id)
			}
		}
	})
}

func TestIndex_DimensionMismatch(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		ctx := context.Background()
		mustUpsert(t, idx, "a", []float32{1, 0, 0})

		err := idx.Upsert(ctx, "b", []float32{1, 0})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("Upsert wrong dim: err=%v, want ErrDimensionMismatch", err)
		}
		var dm *DimensionMismatchError
		if !errors.As(err, &dm) || dm.Got != 2 || dm.Want != 3 {
			t.Errorf("DimensionMismatchError=%+v", dm)
		}
		if n, _ := idx.Count(ctx); n != 1 {
			t.Errorf("Count=%d after rejected upsert, want 1", n)
		}

		if _, err := idx.Query(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Query wrong dim: err=%v", err)
		}
	})
}

func TestIndex_FixedDimension(t *testing.T) {
	forEachStrategy(t, 4, func(t *testing.T, idx Index) {
		if err := idx.Upsert(context.Background(), "a", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("err=%v, want ErrDimensionMismatch", err)
		}
	})
}

func TestIndex_ReplaceKeepsPosition(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		ctx := context.Background()
		mustUpsert(t, idx, "a", []float32{1, 0})
		mustUpsert(t, idx, "b", []float32{0, 1})
		mustUpsert(t, idx, "a", []float32{0, 1})

		if n, _ := idx.Count(ctx); n != 2 {
			t.Errorf("Count=%d, want 2", n)
		}
		ids, _ := idx.ListIDs(ctx)
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Errorf("ListIDs=%v, want [a b]", ids)
		}
		got, _ := idx.Query(ctx, []float32{0, 1}, 2)
		if got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("tie order after replace=%v, want a before b", got)
		}
	})
}

func TestIndex_ZeroNormSortsLast(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		mustUpsert(t, idx, "zero", []float32{0, 0})
		mustUpsert(t, idx, "far", []float32{-1, 0})
		got, err := idx.Query(context.Background(), []float32{1, 0}, 2)
		if err != nil {
			t.Fatal(err)
		}
		if got[0].ID != "far" || math.Abs(got[0].Distance-2) > 1e-9 {
			t.Errorf("got[0]=%+v, want far at distance 2", got[0])
		}
		if got[1].ID != "zero" || !math.IsNaN(got[1].Distance) {
			t.Errorf("got[1]=%+v, want zero with NaN distance", got[1])
		}
	})
}

func TestIndex_EmptyID(t *testing.T) {
	forEachStrategy(t, 0, func(t *testing.T, idx Index) {
		if err := idx.Upsert(context.Background(), "", []float32{1}); err == nil {
			t.Error("expected error for empty id")
		}
	})
}

func TestIndex_ConcurrentAccess(t *testing.T) {
	forEachStrategy(t, 2, func(t *testing.T, idx Index) {
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				if err := idx.Upsert(ctx, string(rune('a'+i)), []float32{float32(i), 1}); err != nil {
					t.Errorf("Upsert: %v", err)
				}
			}(i)
			go func() {
				defer wg.Done()
				if _, err := idx.Query(ctx, []float32{1, 1}, 3); err != nil {
					t.Errorf("Query: %v", err)
				}
			}()
		}
		wg.Wait()
		if n, _ := idx.Count(ctx); n != 8 {
			t.Errorf("Count=%d, want 8", n)
		}
		ids, _ := idx.ListIDs(ctx)
		if len(ids) != 8 {
			t.Errorf("ListIDs returned %d ids, want 8", len(ids))
		}
	})
}
