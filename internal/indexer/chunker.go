package indexer

import (
	"sort"
	"strings"

	"doctutor/internal/chunkstore"
	"doctutor/internal/pdf"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 512
)

// ChunkDocument splits a document's page text blocks into searchable chunks.
// Block text is cleaned the same way the locator normalizes page text
// (hyphenation breaks removed, whitespace collapsed) so every produced chunk
// can later be located on its page. Long blocks are split near chunkSize at
// sentence boundaries, falling back to space boundaries. Each chunk carries
// its 0-indexed page, its position within the page, the source block's
// bounding box, and its relative position among the page's blocks.
func ChunkDocument(doc *pdf.Document, chunkSize int) []chunkstore.Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []chunkstore.Chunk
	for _, page := range doc.Pages {
		totalBlocks := len(page.Blocks)
		pageChunks := 0
		for blockIndex, block := range page.Blocks {
			clean := cleanBlockText(block.Text)
			for len(clean) > 0 {
				text, rest := splitAt(clean, chunkSize)
				if text != "" {
					// Every chunk cut from the same block shares the block's
					// position so the ratio stays within [0, 1] even when a
					// long block splits into many chunks.
					chunks = append(chunks, chunkstore.Chunk{
						Content:          text,
						Page:             page.Number,
						ChunkIndex:       pageChunks,
						BBox:             block.BBox,
						RelativePosition: float64(blockIndex) / float64(totalBlocks),
					})
					pageChunks++
				}
				clean = rest
			}
		}
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Page != chunks[j].Page {
			return chunks[i].Page < chunks[j].Page
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks
}

// cleanBlockText removes hyphenation breaks and collapses whitespace runs.
func cleanBlockText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "-\n", "")
	return strings.Join(strings.Fields(text), " ")
}

// splitAt cuts text near limit runes, preferring a sentence boundary (". "),
// then a space. It returns the trimmed head chunk and the trimmed remainder.
func splitAt(text string, limit int) (string, string) {
	runes := []rune(text)
	if len(runes) <= limit {
		return strings.TrimSpace(text), ""
	}

	end := limit
	head := string(runes[:end])
	if idx := strings.LastIndex(head, ". "); idx > 0 {
		end = len([]rune(head[:idx+1]))
	} else if idx := strings.LastIndex(head, " "); idx > 0 {
		end = len([]rune(head[:idx]))
	}

	return strings.TrimSpace(string(runes[:end])), strings.TrimSpace(string(runes[end:]))
}
