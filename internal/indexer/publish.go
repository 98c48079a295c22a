package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"doctutor/internal/chunkstore"
	"doctutor/internal/contextutil"
	"doctutor/internal/docstore"
	"doctutor/internal/vectorstore"
)

// Ingestor prepares a registered document for retrieval: it builds the
// persisted chunk index ahead of the document's first chat turn and, when a
// remote vector store is configured, mirrors the chunks into the remote
// collection so remote mode can retrieve them.
type Ingestor struct {
	pipeline   *Pipeline
	store      vectorstore.VectorStore // may be nil
	collection string
}

// NewIngestor creates an ingestor. store may be nil, in which case ingestion
// only warms the local index.
func NewIngestor(pipeline *Pipeline, store vectorstore.VectorStore, collection string) *Ingestor {
	return &Ingestor{
		pipeline:   pipeline,
		store:      store,
		collection: collection,
	}
}

// IngestDocument builds (or loads) the document's index and publishes it
// remotely when a store is configured.
func (g *Ingestor) IngestDocument(ctx context.Context, doc docstore.Document) error {
	ix, err := g.pipeline.EnsureIndex(ctx, doc.FilePath, doc.IndexPath())
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	if g.store == nil {
		return nil
	}
	return PublishIndex(ctx, g.store, g.collection, doc.ID, ix)
}

// PublishIndex upserts an index's chunks into a remote vector collection so
// remote-mode retrieval can serve them. Each chunk becomes one point carrying
// the metadata remote retrieval needs to reconstruct provenance.
func PublishIndex(ctx context.Context, store vectorstore.VectorStore, collection, documentID string, ix *chunkstore.Index) error {
	logger := contextutil.LoggerFromContext(ctx)

	chunks := ix.Chunks()
	vectors := ix.Vectors()
	points := make([]vectorstore.Point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, vectorstore.Point{
			ID:  uuid.NewString(),
			Vec: vectors[i],
			Meta: map[string]any{
				"document_id": documentID,
				"content":     chunk.Content,
				"page":        chunk.Page,
				"chunk_index": chunk.ChunkIndex,
				"file_index":  chunk.FileIndex,
			},
		})
	}

	if err := store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("failed to publish index: %w", err)
	}

	logger.InfoContext(ctx, "Published index to remote store",
		"collection", collection,
		"document_id", documentID,
		"points", len(points),
	)
	return nil
}
