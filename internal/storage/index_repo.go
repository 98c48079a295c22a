package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"doctutor/internal/chunkstore"
	"doctutor/internal/pdf"
)

// IndexExists reports whether a persisted index file exists at path.
func IndexExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SaveIndex writes the index to a SQLite file at path, replacing any previous
// contents. The round-trip through LoadIndex is lossless for chunk content,
// metadata, and vectors.
func SaveIndex(ctx context.Context, path string, ix *chunkstore.Index) error {
	db, err := New(path)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate index database: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear previous index: %w", err)
	}

	chunks := ix.Chunks()
	vectors := ix.Vectors()
	for i, chunk := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks
				(pos, content, page, chunk_index, file_index, bbox_x, bbox_y, bbox_w, bbox_h, relative_position, vector)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, chunk.Content, chunk.Page, chunk.ChunkIndex, chunk.FileIndex,
			chunk.BBox.X, chunk.BBox.Y, chunk.BBox.W, chunk.BBox.H,
			chunk.RelativePosition, encodeVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// LoadIndex reads a persisted index from the SQLite file at path.
// Returns ErrNotFound if no file exists there.
func LoadIndex(ctx context.Context, path string) (*chunkstore.Index, error) {
	if !IndexExists(path) {
		return nil, ErrNotFound
	}

	db, err := New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx,
		`SELECT content, page, chunk_index, file_index, bbox_x, bbox_y, bbox_w, bbox_h, relative_position, vector
		FROM chunks ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		chunks  []chunkstore.Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var (
			chunk chunkstore.Chunk
			bbox  pdf.Rect
			blob  []byte
		)
		err := rows.Scan(
			&chunk.Content, &chunk.Page, &chunk.ChunkIndex, &chunk.FileIndex,
			&bbox.X, &bbox.Y, &bbox.W, &bbox.H,
			&chunk.RelativePosition, &blob,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.BBox = bbox
		chunks = append(chunks, chunk)
		vectors = append(vectors, decodeVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	ix, err := chunkstore.New(chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct index: %w", err)
	}
	return ix, nil
}

// encodeVector packs a float32 vector into a little-endian byte blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian byte blob into a float32 vector.
func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
