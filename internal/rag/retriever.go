package rag

import (
	"context"
	"fmt"

	"doctutor/internal/chunkstore"
	"doctutor/internal/contextutil"
	"doctutor/internal/vectorstore"
)

// Embedder turns texts into vectors for similarity queries.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LocalRetriever answers queries against an in-memory chunk index.
type LocalRetriever struct {
	index    *chunkstore.Index
	embedder Embedder
}

// NewLocalRetriever wraps an index and an embedder into a Retriever.
func NewLocalRetriever(index *chunkstore.Index, embedder Embedder) *LocalRetriever {
	return &LocalRetriever{index: index, embedder: embedder}
}

// Retrieve embeds the query and returns the k nearest chunks.
func (r *LocalRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	hits := r.index.Search(vectors[0], k)
	results := make([]ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		results = append(results, ScoredChunk{
			Content:   hit.Chunk.Content,
			Page:      hit.Chunk.Page,
			FileIndex: hit.Chunk.FileIndex,
			Distance:  hit.Distance,
		})
	}
	return results, nil
}

// RemoteRetriever answers queries against a remote vector collection.
type RemoteRetriever struct {
	store      vectorstore.VectorStore
	embedder   Embedder
	collection string
	filters    map[string]any
}

// NewRemoteRetriever wraps a vector store collection into a Retriever.
// filters may be nil; when set they restrict every query (e.g. to a
// document_id).
func NewRemoteRetriever(store vectorstore.VectorStore, embedder Embedder, collection string, filters map[string]any) *RemoteRetriever {
	return &RemoteRetriever{store: store, embedder: embedder, collection: collection, filters: filters}
}

// Retrieve embeds the query and searches the remote collection. Similarity
// scores are converted to distances so local and remote hits rank the same
// way. Payloads missing page or file_index metadata default to page 0 and
// file index 1.
func (r *RemoteRetriever) Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	hits, err := r.store.Search(ctx, r.collection, vectors[0], k, r.filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", r.collection, err)
	}

	results := make([]ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		content, _ := hit.Meta["content"].(string)
		if content == "" {
			logger.WarnContext(ctx, "skipping hit without content payload", "point_id", hit.PointID)
			continue
		}

		page, ok := metaInt(hit.Meta, "page")
		if !ok {
			logger.WarnContext(ctx, "hit missing page metadata, defaulting to 0", "point_id", hit.PointID)
			page = 0
		}
		fileIndex, ok := metaInt(hit.Meta, "file_index")
		if !ok {
			logger.WarnContext(ctx, "hit missing file_index metadata, defaulting to 1", "point_id", hit.PointID)
			fileIndex = 1
		}

		results = append(results, ScoredChunk{
			Content:   content,
			Page:      page,
			FileIndex: fileIndex,
			Distance:  1 - float64(hit.Score),
		})
	}
	return results, nil
}

func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
