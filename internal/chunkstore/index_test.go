package chunkstore

import (
	"context"
	"fmt"
	"testing"
)

// fakeEmbedder returns a fixed unit vector per known text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func TestBuild(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alpha": {1, 0},
		"beta":  {0, 1},
	}}

	chunks := []Chunk{
		{Content: "alpha", Page: 0, ChunkIndex: 0},
		{Content: "beta", Page: 1, ChunkIndex: 1},
	}

	ix, err := Build(context.Background(), chunks, embedder)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if ix.Len() != 2 {
		t.Errorf("Build() index length = %d, want 2", ix.Len())
	}
}

func TestBuild_EmptyChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	if _, err := Build(context.Background(), nil, embedder); err == nil {
		t.Error("Build() with zero chunks should fail")
	}
}

func TestBuild_EmbedderError(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("backend down")}
	chunks := []Chunk{{Content: "alpha"}}
	if _, err := Build(context.Background(), chunks, embedder); err == nil {
		t.Error("Build() should propagate embedder errors")
	}
}

func TestIndex_Search(t *testing.T) {
	ix, err := New(
		[]Chunk{
			{Content: "east", ChunkIndex: 0},
			{Content: "north", ChunkIndex: 1},
			{Content: "northeast", ChunkIndex: 2},
		},
		[][]float32{
			{1, 0},
			{0, 1},
			{0.7071, 0.7071},
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results := ix.Search([]float32{1, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Chunk.Content != "east" {
		t.Errorf("Search() first hit = %q, want east", results[0].Chunk.Content)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("Search() results should be ordered by ascending distance")
	}
	if results[0].Distance < 0 || results[1].Distance < 0 {
		t.Error("Search() distances must be non-negative")
	}
}

func TestIndex_Search_TiesByInsertionOrder(t *testing.T) {
	ix, err := New(
		[]Chunk{
			{Content: "first", ChunkIndex: 0},
			{Content: "second", ChunkIndex: 1},
		},
		[][]float32{
			{1, 0},
			{1, 0},
		},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	results := ix.Search([]float32{1, 0}, 2)
	if results[0].Chunk.Content != "first" || results[1].Chunk.Content != "second" {
		t.Errorf("Search() tie order = %q, %q; want insertion order",
			results[0].Chunk.Content, results[1].Chunk.Content)
	}
}

func TestIndex_Search_KLargerThanIndex(t *testing.T) {
	ix, _ := New([]Chunk{{Content: "only"}}, [][]float32{{1, 0}})
	results := ix.Search([]float32{0, 1}, 10)
	if len(results) != 1 {
		t.Errorf("Search() returned %d results, want 1", len(results))
	}
}

func TestIndex_MergePreservesProvenance(t *testing.T) {
	a, _ := New(
		[]Chunk{{Content: "from doc one", Page: 3}},
		[][]float32{{1, 0}},
	)
	b, _ := New(
		[]Chunk{{Content: "from doc two", Page: 7}},
		[][]float32{{0, 1}},
	)

	a.TagFileIndex(1)
	b.TagFileIndex(2)
	merged := a.Merge(b)

	if merged.Len() != 2 {
		t.Fatalf("Merge() length = %d, want 2", merged.Len())
	}

	// A query near doc two's vector must report file index 2 and its page.
	results := merged.Search([]float32{0, 1}, 1)
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	hit := results[0].Chunk
	if hit.FileIndex != 2 {
		t.Errorf("Search() hit FileIndex = %d, want 2", hit.FileIndex)
	}
	if hit.Page != 7 {
		t.Errorf("Search() hit Page = %d, want 7", hit.Page)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineDistance() = %v, want %v", got, tt.want)
			}
		})
	}
}
