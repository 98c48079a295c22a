package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"doctutor/internal/chunkstore"
	"doctutor/internal/vectorstore"
)

type fakeVectorStore struct {
	results []vectorstore.SearchResult
}

func (f *fakeVectorStore) Upsert(context.Context, string, []vectorstore.Point) error { return nil }
func (f *fakeVectorStore) Delete(context.Context, string, []string) error            { return nil }
func (f *fakeVectorStore) Search(context.Context, string, []float32, int, map[string]any) ([]vectorstore.SearchResult, error) {
	return f.results, nil
}

func TestLocalRetriever(t *testing.T) {
	ix := mustIndex(t,
		[]chunkstore.Chunk{
			{Content: "near", Page: 1, FileIndex: 1},
			{Content: "far", Page: 2, FileIndex: 2},
		},
		[][]float32{{1, 0}, {0, 1}},
	)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	hits, err := NewLocalRetriever(ix, embedder).Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "near", hits[0].Content)
	require.Equal(t, 1, hits[0].Page)
	require.Equal(t, 1, hits[0].FileIndex)
	require.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestRemoteRetriever_ConvertsScoresAndDefaults(t *testing.T) {
	store := &fakeVectorStore{results: []vectorstore.SearchResult{
		{
			PointID: "p1",
			Score:   0.9,
			Meta:    map[string]any{"content": "full metadata", "page": int64(3), "file_index": int64(2)},
		},
		{
			PointID: "p2",
			Score:   0.5,
			Meta:    map[string]any{"content": "missing metadata"},
		},
		{
			PointID: "p3",
			Score:   0.4,
			Meta:    map[string]any{"page": int64(1)}, // no content, skipped
		},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}

	hits, err := NewRemoteRetriever(store, embedder, "documents", nil).Retrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	require.Equal(t, "full metadata", hits[0].Content)
	require.Equal(t, 3, hits[0].Page)
	require.Equal(t, 2, hits[0].FileIndex)
	require.InDelta(t, 0.1, hits[0].Distance, 1e-6)

	// Missing page defaults to 0 and file_index to 1.
	require.Equal(t, 0, hits[1].Page)
	require.Equal(t, 1, hits[1].FileIndex)
}
