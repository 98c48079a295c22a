package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"doctutor/internal/contextutil"
	"doctutor/internal/docstore"
)

// DocumentRegistry registers and lists documents. Satisfied by
// *docstore.Store.
type DocumentRegistry interface {
	Register(ctx context.Context, filePath string) (docstore.Document, error)
	Documents() []docstore.Document
}

// DocumentIngestor builds a registered document's index ahead of its first
// chat turn. Satisfied by *indexer.Ingestor.
type DocumentIngestor interface {
	IngestDocument(ctx context.Context, doc docstore.Document) error
}

// DocumentsHandler registers server-local documents and lists them.
type DocumentsHandler struct {
	docs   DocumentRegistry
	ingest DocumentIngestor // may be nil
}

// NewDocumentsHandler creates a new DocumentsHandler. ingest may be nil, in
// which case indexes are built lazily on the first chat turn instead.
func NewDocumentsHandler(docs DocumentRegistry, ingest DocumentIngestor) *DocumentsHandler {
	return &DocumentsHandler{docs: docs, ingest: ingest}
}

// RegisterRequest is the payload for registering a document.
type RegisterRequest struct {
	FilePath string `json:"file_path"`
}

// DocumentResponse describes one registered document.
type DocumentResponse struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
}

// ServeHTTP handles POST /api/documents (register) and GET /api/documents
// (list).
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		docs := h.docs.Documents()
		out := make([]DocumentResponse, 0, len(docs))
		for _, doc := range docs {
			out = append(out, DocumentResponse{ID: doc.ID, FilePath: doc.FilePath})
		}
		writeJSON(ctx, w, out)

	case http.MethodPost:
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.FilePath == "" {
			writeError(w, http.StatusBadRequest, "file_path is required")
			return
		}
		if _, err := os.Stat(req.FilePath); err != nil {
			logger.WarnContext(ctx, "document file not accessible", "file", req.FilePath, "error", err)
			writeError(w, http.StatusBadRequest, "File not accessible")
			return
		}

		doc, err := h.docs.Register(ctx, req.FilePath)
		if err != nil {
			handleDomainError(ctx, w, err, "Failed to register document")
			return
		}

		// Index in the background so registration returns immediately;
		// ingestion failures surface later as chat-time index errors.
		if h.ingest != nil {
			go func() {
				bgCtx := contextutil.WithLogger(context.Background(), logger)
				if err := h.ingest.IngestDocument(bgCtx, doc); err != nil {
					logger.WarnContext(bgCtx, "background ingestion failed", "id", doc.ID, "error", err)
				}
			}()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(DocumentResponse{ID: doc.ID, FilePath: doc.FilePath})

	default:
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
