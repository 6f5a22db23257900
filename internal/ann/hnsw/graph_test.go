package hnsw

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b, Magnitude(tt.a), Magnitude(tt.b))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdd_AssignsSequentialIDs(t *testing.T) {
	g := New(DefaultConfig())
	for want := 0; want < 10; want++ {
		id, err := g.Add([]float32{float32(want), 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != want {
			t.Fatalf("id: got %d, want %d", id, want)
		}
	}
	if g.Len() != 10 {
		t.Errorf("len: got %d, want 10", g.Len())
	}
}

func TestAdd_EmptyVector(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.Add(nil); !errors.Is(err, ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.Add([]float32{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Add([]float32{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_EmptyGraph(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.Search([]float32{1, 0}, 5); !errors.Is(err, ErrEmptyGraph) {
		t.Fatalf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	g := New(DefaultConfig())
	if _, err := g.Add([]float32{1, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_FindsExactMatch(t *testing.T) {
	g := New(DefaultConfig())
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
	for _, v := range vectors {
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := g.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results: got %d, want 1", len(got))
	}
	if got[0].ID != 1 {
		t.Errorf("id: got %d, want 1", got[0].ID)
	}
	if got[0].Distance > 1e-6 {
		t.Errorf("distance: got %v, want ~0", got[0].Distance)
	}
}

func TestSearch_OrdersByAscendingDistance(t *testing.T) {
	g := New(DefaultConfig())
	for _, v := range randomVectors(200, 8, 42) {
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := g.Search(randomVectors(1, 8, 7)[0], 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("results: got %d, want 20", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Fatalf("results out of order at %d: %v after %v", i, got[i].Distance, got[i-1].Distance)
		}
	}
}

func TestSearch_KLargerThanGraph(t *testing.T) {
	g := New(DefaultConfig())
	for _, v := range randomVectors(5, 4, 1) {
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := g.Search([]float32{1, 1, 1, 1}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("results: got %d, want 5", len(got))
	}
}

func TestSearch_RecallOnClusteredData(t *testing.T) {
	// Two well-separated clusters; a query near one cluster's center must
	// only return members of that cluster.
	g := New(DefaultConfig())
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 50; i++ {
		v := []float32{10 + rng.Float32(), rng.Float32() * 0.1, 0}
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 0; i < 50; i++ {
		v := []float32{rng.Float32() * 0.1, 10 + rng.Float32(), 0}
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := g.Search([]float32{10, 0, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range got {
		if c.ID >= 50 {
			t.Errorf("result %d belongs to the wrong cluster", c.ID)
		}
	}
}

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}
