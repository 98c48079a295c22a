package chunkstore

import (
	"context"
	"fmt"
	"math"
	"sort"
)

//go:generate mockgen -source=index.go -destination=mocks/mock_embedder.go -package=mocks

// Embedder generates embedding vectors for texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a similarity-searchable set of chunks and their embedding vectors.
// It is read-mostly after construction and not safe for concurrent mutation.
type Index struct {
	chunks  []Chunk
	vectors [][]float32
}

// Result is one similarity search hit. Distance is a non-negative
// dissimilarity; smaller means more relevant.
type Result struct {
	Chunk    Chunk
	Distance float64
}

// Build embeds the chunks' content and constructs an index over them.
// An empty chunk list is an error.
func Build(ctx context.Context, chunks []Chunk, embedder Embedder) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot build index from zero chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	return &Index{chunks: chunks, vectors: vectors}, nil
}

// New constructs an index from already-embedded chunks, e.g. when loading a
// persisted index. chunks and vectors must be the same length.
func New(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	return &Index{chunks: chunks, vectors: vectors}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Chunks returns the indexed chunks in insertion order.
func (ix *Index) Chunks() []Chunk {
	return ix.chunks
}

// Vectors returns the embedding vectors in insertion order.
func (ix *Index) Vectors() [][]float32 {
	return ix.vectors
}

// TagFileIndex sets FileIndex on every chunk in the index. Callers tag each
// per-document index with the document's 1-based position before merging.
func (ix *Index) TagFileIndex(fileIndex int) {
	for i := range ix.chunks {
		ix.chunks[i].FileIndex = fileIndex
	}
}

// Merge returns a new index holding the union of both indexes' chunks and
// vectors. Chunk metadata is preserved as-is; ix's entries precede other's.
func (ix *Index) Merge(other *Index) *Index {
	merged := &Index{
		chunks:  make([]Chunk, 0, len(ix.chunks)+len(other.chunks)),
		vectors: make([][]float32, 0, len(ix.vectors)+len(other.vectors)),
	}
	merged.chunks = append(merged.chunks, ix.chunks...)
	merged.chunks = append(merged.chunks, other.chunks...)
	merged.vectors = append(merged.vectors, ix.vectors...)
	merged.vectors = append(merged.vectors, other.vectors...)
	return merged
}

// Search returns the k nearest chunks to the query vector by cosine distance,
// smallest distance first. Ties are broken by insertion order.
func (ix *Index) Search(query []float32, k int) []Result {
	if k <= 0 || len(ix.chunks) == 0 {
		return nil
	}

	results := make([]Result, len(ix.chunks))
	for i, vec := range ix.vectors {
		results[i] = Result{
			Chunk:    ix.chunks[i],
			Distance: cosineDistance(query, vec),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// cosineDistance returns 1 - cosine similarity, clamped to be non-negative.
// Zero-magnitude vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
	if d < 0 {
		return 0
	}
	return d
}
