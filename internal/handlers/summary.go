package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"doctutor/internal/contextutil"
	"doctutor/internal/pdf"
	"doctutor/internal/summary"
)

// Summarizer generates a document summary. Satisfied by *summary.Generator.
type Summarizer interface {
	Generate(ctx context.Context, docText string) (*summary.Summary, error)
}

// SummaryHandler serves generated document summaries.
type SummaryHandler struct {
	docs      DocumentResolver
	generator Summarizer
	openDoc   func(path string) (*pdf.Document, error)
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(docs DocumentResolver, generator Summarizer) *SummaryHandler {
	return &SummaryHandler{
		docs:      docs,
		generator: generator,
		openDoc:   pdf.Open,
	}
}

// ServeHTTP handles GET /api/documents/{id}/summary.
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Document id is required")
		return
	}

	doc, err := h.docs.Lookup(id)
	if err != nil {
		handleDomainError(ctx, w, err, "Failed to resolve document")
		return
	}

	opened, err := h.openDoc(doc.FilePath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open document", "id", id, "file", doc.FilePath, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to open document")
		return
	}

	var text strings.Builder
	for _, page := range opened.Pages {
		text.WriteString(page.Text)
		text.WriteString("\n")
	}

	result, err := h.generator.Generate(ctx, text.String())
	if err != nil {
		handleDomainError(ctx, w, err, "Failed to generate summary")
		return
	}
	writeJSON(ctx, w, result)
}
