// Package docstore tracks uploaded documents by content hash and owns the
// per-document working-directory layout under the data directory:
//
//	DATA_DIR/embedded_content/<id>/doc.json    document metadata
//	DATA_DIR/embedded_content/<id>/index.db    persisted chunk index
//	DATA_DIR/embedded_content/<id>/markdown/   markdown assets + image catalogs
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"doctutor/internal/contextutil"
)

const (
	embeddedContentDir = "embedded_content"
	metadataFile       = "doc.json"
	indexFile          = "index.db"
	markdownSubdir     = "markdown"
)

// ErrUnknownDocument is returned when a document ID is not registered.
var ErrUnknownDocument = errors.New("unknown document")

// Document is one registered document and its working directory.
type Document struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Folder   string `json:"-"`
}

// IndexPath is the location of the document's persisted chunk index.
func (d Document) IndexPath() string {
	return filepath.Join(d.Folder, indexFile)
}

// MarkdownDir is the directory holding markdown assets and image catalogs.
func (d Document) MarkdownDir() string {
	return filepath.Join(d.Folder, markdownSubdir)
}

// Store maps document IDs to their working directories. Safe for concurrent
// use.
type Store struct {
	dataDir string

	mu   sync.RWMutex
	docs map[string]Document
}

// NewStore opens the store rooted at dataDir, creating the layout if needed
// and reloading documents registered by earlier runs.
func NewStore(ctx context.Context, dataDir string) (*Store, error) {
	s := &Store{
		dataDir: dataDir,
		docs:    make(map[string]Document),
	}
	if err := os.MkdirAll(s.root(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create document store root: %w", err)
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) root() string {
	return filepath.Join(s.dataDir, embeddedContentDir)
}

// FileID derives a document's identity from its content.
func FileID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Register adds a document by file path, creating its working directory.
// Registering the same content twice returns the same document.
func (s *Store) Register(ctx context.Context, filePath string) (Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	id, err := FileID(filePath)
	if err != nil {
		return Document{}, fmt.Errorf("failed to compute document id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[id]; ok {
		return doc, nil
	}

	doc := Document{
		ID:       id,
		FilePath: filePath,
		Folder:   filepath.Join(s.root(), id),
	}
	if err := os.MkdirAll(doc.MarkdownDir(), 0755); err != nil {
		return Document{}, fmt.Errorf("failed to create document folder: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("failed to marshal document metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(doc.Folder, metadataFile), data, 0644); err != nil {
		return Document{}, fmt.Errorf("failed to write document metadata: %w", err)
	}

	s.docs[id] = doc
	logger.InfoContext(ctx, "registered document", "id", id, "file", filePath)
	return doc, nil
}

// Lookup returns the document registered under id.
func (s *Store) Lookup(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return doc, nil
}

// Documents returns all registered documents.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs
}

// reload rediscovers documents from folders left by earlier runs. A folder
// with unreadable metadata is skipped, not fatal.
func (s *Store) reload(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(s.root())
	if err != nil {
		return fmt.Errorf("failed to read document store root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		folder := filepath.Join(s.root(), entry.Name())
		data, err := os.ReadFile(filepath.Join(folder, metadataFile))
		if err != nil {
			logger.WarnContext(ctx, "skipping document folder without metadata", "folder", folder, "error", err)
			continue
		}

		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			logger.WarnContext(ctx, "skipping document folder with bad metadata", "folder", folder, "error", err)
			continue
		}
		doc.Folder = folder
		s.docs[doc.ID] = doc
	}

	logger.DebugContext(ctx, "document store loaded", "documents", len(s.docs))
	return nil
}
