// Package indexer turns uploaded documents into persisted, searchable chunk
// indexes: extraction, page-aware chunking, embedding, and save/load.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doctutor/internal/chunkstore"
	"doctutor/internal/contextutil"
	"doctutor/internal/pdf"
	"doctutor/internal/storage"
)

// Pipeline builds per-document chunk indexes and persists them so each
// document is only embedded once.
type Pipeline struct {
	embedder  chunkstore.Embedder
	chunkSize int
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(embedder chunkstore.Embedder, chunkSize int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipeline{
		embedder:  embedder,
		chunkSize: chunkSize,
	}
}

// EnsureIndex loads the persisted index for a document, building and saving
// it first if it does not exist yet. The build-if-missing path is idempotent
// but not atomic: two concurrent builders redo the same work and the last
// save wins.
func (p *Pipeline) EnsureIndex(ctx context.Context, filePath, indexPath string) (*chunkstore.Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ix, err := storage.LoadIndex(ctx, indexPath)
	if err == nil {
		logger.DebugContext(ctx, "Loaded existing index", "index_path", indexPath, "chunks", ix.Len())
		return ix, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	logger.InfoContext(ctx, "No existing index found, building", "file", filePath, "index_path", indexPath)
	return p.BuildIndex(ctx, filePath, indexPath)
}

// BuildIndex extracts, chunks, and embeds a document, persisting the result
// at indexPath. PDFs are chunked page by page; markdown and plain text fall
// back to the structure-aware splitter.
func (p *Pipeline) BuildIndex(ctx context.Context, filePath, indexPath string) (*chunkstore.Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	chunks, pages, err := p.extractChunks(filePath)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", filePath)
	}

	ix, err := chunkstore.Build(ctx, chunks, p.embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	if err := storage.SaveIndex(ctx, indexPath, ix); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	stats := ComputeChunkStats(chunks)
	logger.InfoContext(ctx, "Indexed document",
		"file", filePath,
		"pages", pages,
		"chunks", len(chunks),
		"mean_tokens", stats.Mean,
		"p95_tokens", stats.P95,
	)
	return ix, nil
}

// extractChunks picks the chunker for a document by extension and returns the
// chunks plus the page count covered.
func (p *Pipeline) extractChunks(filePath string) ([]chunkstore.Chunk, int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown", ".txt":
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read document: %w", err)
		}
		chunks, err := ChunkMarkdown(string(raw), p.chunkSize, markdownChunkOverlap)
		if err != nil {
			return nil, 0, err
		}
		return chunks, 1, nil
	default:
		doc, err := pdf.Open(filePath)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to open document: %w", err)
		}
		return ChunkDocument(doc, p.chunkSize), len(doc.Pages), nil
	}
}
