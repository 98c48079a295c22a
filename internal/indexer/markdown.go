package indexer

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"doctutor/internal/chunkstore"
)

// markdownChunkOverlap keeps neighboring markdown chunks sharing a little
// context since they have no page geometry to re-anchor them later.
const markdownChunkOverlap = 64

// ChunkMarkdown splits markdown or plain text into chunks using a
// structure-aware markdown splitter. It is the fallback for content that has
// no page geometry (e.g. generated notes); all chunks report page 0.
func ChunkMarkdown(content string, chunkSize, chunkOverlap int) ([]chunkstore.Chunk, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)

	parts, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split markdown: %w", err)
	}

	chunks := make([]chunkstore.Chunk, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			continue
		}
		chunks = append(chunks, chunkstore.Chunk{
			Content:    part,
			Page:       0,
			ChunkIndex: i,
		})
	}
	return chunks, nil
}
