package indexer

import (
	"math"
	"sort"
	"unicode/utf8"

	"doctutor/internal/chunkstore"
)

// TokensPerRune is an approximation for token counting (4 chars per token).
const TokensPerRune = 4.0

// ChunkStats summarizes estimated token counts across a document's chunks.
// Useful for spotting documents whose chunks blow the embedding context.
type ChunkStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ComputeChunkStats estimates token counts for each chunk and summarizes them.
func ComputeChunkStats(chunks []chunkstore.Chunk) ChunkStats {
	if len(chunks) == 0 {
		return ChunkStats{}
	}

	tokenCounts := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		// Estimate tokens from rune count (approximation: ~4 chars per token)
		runeCount := utf8.RuneCountInString(chunk.Content)
		tokenCount := int(math.Round(float64(runeCount) / TokensPerRune))
		if tokenCount < 1 {
			tokenCount = 1 // Minimum 1 token
		}
		tokenCounts = append(tokenCounts, tokenCount)
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
