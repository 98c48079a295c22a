// Package chunkstore holds the searchable per-document chunk index: an
// in-memory brute-force similarity index over embedded document chunks that
// can be merged across documents while preserving provenance metadata.
package chunkstore

import "doctutor/internal/pdf"

// Chunk is an immutable span of document text with position metadata.
type Chunk struct {
	Content string
	// Page is the 0-indexed page the chunk was extracted from. Callers add 1
	// when reporting pages to users.
	Page       int
	ChunkIndex int
	// FileIndex is the 1-based position of the originating document in the
	// request's file list. It is tagged by the caller before indexes are
	// merged so provenance survives the merge.
	FileIndex        int
	BBox             pdf.Rect
	RelativePosition float64
}
