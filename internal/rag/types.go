// Package rag implements source attribution for generated answers: retrieval
// of candidate sources from per-document chunk indexes, joint score
// normalization, and verification-based refinement into a bounded set of
// cited sources.
package rag

import (
	"context"
	"errors"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks doctutor/internal/rag Retriever

// ErrNoDocuments is returned when attribution is requested with zero
// documents.
var ErrNoDocuments = errors.New("no documents provided")

// ScoredChunk is one similarity hit with its provenance metadata.
// Distance is a non-negative dissimilarity; smaller means more relevant.
type ScoredChunk struct {
	Content   string
	Page      int // 0-indexed
	FileIndex int // 1-based originating document position
	Distance  float64
}

// Retriever answers top-k similarity queries against indexed content.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}

// RawHit is one retrieval hit keyed by its resolved source identifier.
type RawHit struct {
	Key      string
	Distance float64
}

// Attribution is the coherent output triple: Sources, RefinedPages and
// RefinedFileIndex share exactly the same key set, while RawPages covers
// every retrieved candidate including ones refined away.
type Attribution struct {
	// Sources maps each surviving source identifier to its refined relevance
	// score in [0, 1].
	Sources map[string]float64
	// RawPages maps every retrieved candidate to its 0-indexed page.
	RawPages map[string]int
	// RefinedPages maps surviving sources to 1-indexed page numbers.
	RefinedPages map[string]int
	// RefinedFileIndex maps surviving sources to their 1-based document
	// position.
	RefinedFileIndex map[string]int
}

// Options tunes retrieval and refinement.
type Options struct {
	// K is the number of neighbors requested per similarity sub-query.
	K int
	// MaxSources caps the refined source count.
	MaxSources int
	// KeepFraction is the share of merged sources kept after ranking
	// (floored, minimum one source).
	KeepFraction float64
	// RelevanceFloor is the minimum combined score for an image to survive
	// filtering.
	RelevanceFloor float64
	// ImageURLPrefix identifies source keys that are external image URLs.
	ImageURLPrefix string
}

// DefaultOptions returns the retrieval tuning used in production.
func DefaultOptions() Options {
	return Options{
		K:              4,
		MaxSources:     20,
		KeepFraction:   0.5,
		RelevanceFloor: 0.5,
		ImageURLPrefix: "https://knowhiztutorrag.blob",
	}
}
