package rag

import (
	"context"
	"testing"
)

// newMemoryStore opens a non-persistent chromem store for tests.
func newMemoryStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(&ChromemConfig{Collection: "test-docs"})
	if err != nil {
		t.Fatalf("open in-memory chromem store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_ChromemStore_UpsertAndSearch(t *testing.T) {
	t.Parallel()
	s := newMemoryStore(t)
	ctx := context.Background()

	docs := []Document{
		{ID: "a", Content: "drip irrigation scheduling", Source: "manual.pdf", Metadata: map[string]string{"page": "1"}},
		{ID: "b", Content: "pesticide storage requirements", Source: "manual.pdf", Metadata: map[string]string{"page": "4"}},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}

	if err := s.Upsert(ctx, docs, embeddings); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 result, got %d", len(got))
	}
	if got[0].ID != "a" {
		t.Errorf("want nearest doc a, got %s", got[0].ID)
	}
	if got[0].Source != "manual.pdf" {
		t.Errorf("source not round-tripped: got %q", got[0].Source)
	}
	if got[0].Metadata["page"] != "1" {
		t.Errorf("page metadata not round-tripped: got %v", got[0].Metadata)
	}
}

func Test_ChromemStore_SearchEmptyIndex(t *testing.T) {
	t.Parallel()
	s := newMemoryStore(t)

	got, err := s.Search(context.Background(), []float32{1, 0, 0}, 6)
	if err != nil {
		t.Fatalf("search on empty index: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want 0 results from empty index, got %d", len(got))
	}
}

func Test_ChromemStore_TopKClampedToCount(t *testing.T) {
	t.Parallel()
	s := newMemoryStore(t)
	ctx := context.Background()

	docs := []Document{{ID: "only", Content: "lone chunk", Source: "f.pdf"}}
	if err := s.Upsert(ctx, docs, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 6)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("want 1 result with topK clamped, got %d", len(got))
	}
}

func Test_ChromemStore_UpsertSameIDReplaces(t *testing.T) {
	t.Parallel()
	s := newMemoryStore(t)
	ctx := context.Background()

	first := []Document{{ID: "x", Content: "old text", Source: "f.pdf"}}
	if err := s.Upsert(ctx, first, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second := []Document{{ID: "x", Content: "new text", Source: "f.pdf"}}
	if err := s.Upsert(ctx, second, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 6)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 result after re-upsert of same ID, got %d", len(got))
	}
	if got[0].Content != "new text" {
		t.Errorf("want replaced content, got %q", got[0].Content)
	}
}

func Test_ChromemStore_MismatchedBatchRejected(t *testing.T) {
	t.Parallel()
	s := newMemoryStore(t)

	docs := []Document{{ID: "a", Content: "c"}, {ID: "b", Content: "d"}}
	err := s.Upsert(context.Background(), docs, [][]float32{{1, 0, 0}})
	if err == nil {
		t.Error("want error for mismatched docs/embeddings, got nil")
	}
}
