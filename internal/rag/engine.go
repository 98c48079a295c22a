package rag

import (
	"context"
	"fmt"
	"path/filepath"

	"doctutor/internal/chunkstore"
	"doctutor/internal/contextutil"
	"doctutor/internal/images"
	"doctutor/internal/session"
)

// IndexProvider loads or builds the persisted chunk index for a document.
// Satisfied by *indexer.Pipeline.
type IndexProvider interface {
	EnsureIndex(ctx context.Context, filePath, indexPath string) (*chunkstore.Index, error)
}

// Engine orchestrates source attribution: per-document index assembly,
// dual-query retrieval, score normalization, identifier resolution, and
// refinement.
type Engine struct {
	indexes  IndexProvider
	embedder Embedder
	refiner  *Refiner
	remote   Retriever // used in remote mode; may be nil
	opts     Options
}

// NewEngine builds an attribution engine. remote may be nil, in which case
// remote-mode requests fall back to local retrieval.
func NewEngine(indexes IndexProvider, embedder Embedder, refiner *Refiner, remote Retriever, opts Options) *Engine {
	return &Engine{
		indexes:  indexes,
		embedder: embedder,
		refiner:  refiner,
		remote:   remote,
		opts:     opts,
	}
}

// Request describes one attribution run over a fixed set of documents.
// FilePaths and IndexFolders are parallel: IndexFolders[i] is the working
// directory holding document i's persisted index and markdown assets.
type Request struct {
	Mode         session.Mode
	Question     string
	Answer       string
	FilePaths    []string
	IndexFolders []string
}

const (
	indexFileName = "index.db"
	markdownDir   = "markdown"
)

// Attribute retrieves, scores, and refines the sources supporting an answer.
// It fails only when no documents are given, the inputs are inconsistent, or
// retrieval itself is impossible; refinement problems degrade to fewer
// sources instead.
func (e *Engine) Attribute(ctx context.Context, req Request) (*Attribution, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(req.FilePaths) == 0 {
		return nil, ErrNoDocuments
	}
	if len(req.FilePaths) != len(req.IndexFolders) {
		return nil, fmt.Errorf("got %d file paths but %d index folders", len(req.FilePaths), len(req.IndexFolders))
	}

	markdownDirs := make([]string, len(req.IndexFolders))
	for i, folder := range req.IndexFolders {
		markdownDirs[i] = filepath.Join(folder, markdownDir)
	}
	catalog, err := images.Load(ctx, markdownDirs)
	if err != nil {
		return nil, fmt.Errorf("failed to load image catalogs: %w", err)
	}

	retriever, err := e.retrieverFor(ctx, req)
	if err != nil {
		return nil, err
	}

	questionHits, err := retriever.Retrieve(ctx, req.Question, e.opts.K)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve for question: %w", err)
	}
	answerHits, err := retriever.Retrieve(ctx, req.Answer, e.opts.K)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve for answer: %w", err)
	}

	rawPages, fileIndexes := collectMetadata(catalog, questionHits, answerHits)
	scores := NormalizeScores(resolveHits(catalog, questionHits), resolveHits(catalog, answerHits))
	refined := e.refiner.Refine(ctx, req.Question, scores, req.FilePaths, catalog)

	attribution := &Attribution{
		Sources:          refined,
		RawPages:         rawPages,
		RefinedPages:     make(map[string]int, len(refined)),
		RefinedFileIndex: make(map[string]int, len(refined)),
	}
	for key := range refined {
		// Refined pages are reported 1-indexed.
		attribution.RefinedPages[key] = rawPages[key] + 1
		attribution.RefinedFileIndex[key] = fileIndexes[key]
	}

	logger.InfoContext(ctx, "source attribution complete",
		"candidates", len(scores),
		"refined", len(refined),
		"documents", len(req.FilePaths),
	)
	return attribution, nil
}

// retrieverFor selects the retrieval backend for a request. Local mode merges
// the per-document indexes, tagging each with its 1-based document position
// first so provenance survives the merge.
func (e *Engine) retrieverFor(ctx context.Context, req Request) (Retriever, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Mode == session.ModeRemote {
		if e.remote != nil {
			return e.remote, nil
		}
		logger.WarnContext(ctx, "remote mode requested but no remote store configured, using local indexes")
	}

	var merged *chunkstore.Index
	for i, filePath := range req.FilePaths {
		ix, err := e.indexes.EnsureIndex(ctx, filePath, filepath.Join(req.IndexFolders[i], indexFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to ensure index for %s: %w", filePath, err)
		}
		ix.TagFileIndex(i + 1)
		if merged == nil {
			merged = ix
		} else {
			merged = merged.Merge(ix)
		}
	}
	return NewLocalRetriever(merged, e.embedder), nil
}

// collectMetadata builds the page and file-index lookups for every hit,
// keyed by resolved identifier. When the same identifier appears more than
// once the closest hit's metadata wins, so batch order does not matter.
func collectMetadata(catalog *images.Catalog, batches ...[]ScoredChunk) (pages, fileIndexes map[string]int) {
	pages = make(map[string]int)
	fileIndexes = make(map[string]int)
	bestDist := make(map[string]float64)

	for _, batch := range batches {
		for _, hit := range batch {
			key := catalog.Resolve(hit.Content)
			if d, seen := bestDist[key]; seen && hit.Distance >= d {
				continue
			}
			bestDist[key] = hit.Distance
			pages[key] = hit.Page
			fileIndexes[key] = hit.FileIndex
		}
	}
	return pages, fileIndexes
}

// resolveHits converts scored chunks to raw hits keyed by their resolved
// identifiers.
func resolveHits(catalog *images.Catalog, hits []ScoredChunk) []RawHit {
	raw := make([]RawHit, 0, len(hits))
	for _, hit := range hits {
		raw = append(raw, RawHit{Key: catalog.Resolve(hit.Content), Distance: hit.Distance})
	}
	return raw
}
