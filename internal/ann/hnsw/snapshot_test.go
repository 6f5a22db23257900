package hnsw

import (
	"reflect"
	"testing"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	g := New(Config{M: 8, EfConstruction: 200, EfSearch: 50})
	for _, v := range randomVectors(100, 16, 3) {
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	data, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored, err := FromSnapshot(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Len() != g.Len() {
		t.Fatalf("len: got %d, want %d", restored.Len(), g.Len())
	}
	if restored.Dim() != g.Dim() {
		t.Fatalf("dim: got %d, want %d", restored.Dim(), g.Dim())
	}

	// The restored graph must answer queries identically.
	for _, q := range randomVectors(10, 16, 4) {
		want, err := g.Search(q, 10)
		if err != nil {
			t.Fatalf("search original: %v", err)
		}
		got, err := restored.Search(q, 10)
		if err != nil {
			t.Fatalf("search restored: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("results diverge:\ngot  %v\nwant %v", got, want)
		}
	}
}

func TestSnapshot_RestoredGraphAcceptsInserts(t *testing.T) {
	g := New(Config{M: 8, EfConstruction: 100, EfSearch: 50})
	for _, v := range randomVectors(20, 4, 5) {
		if _, err := g.Add(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	data, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	restored, err := FromSnapshot(data)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	id, err := restored.Add([]float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("add after restore: %v", err)
	}
	if id != 20 {
		t.Errorf("id: got %d, want 20", id)
	}
}

func TestFromSnapshot_Garbage(t *testing.T) {
	if _, err := FromSnapshot([]byte("not a snapshot")); err == nil {
		t.Fatal("expected error")
	}
}
