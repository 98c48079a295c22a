package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"doctutor/internal/docstore"
	"doctutor/internal/pdf"
	"doctutor/internal/summary"
)

type fakeSummarizer struct {
	result  *summary.Summary
	err     error
	gotText string
}

func (f *fakeSummarizer) Generate(_ context.Context, docText string) (*summary.Summary, error) {
	f.gotText = docText
	return f.result, f.err
}

func summaryRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+id+"/summary", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSummaryHandler(t *testing.T) {
	docs := &fakeDocs{byID: map[string]docstore.Document{
		"doc1": {ID: "doc1", FilePath: "/data/doc1.pdf"},
	}}
	summarizer := &fakeSummarizer{result: &summary.Summary{
		TakeHomeMessage: "the gist",
		HTML:            "<h1>Take-home message</h1>",
	}}
	handler := NewSummaryHandler(docs, summarizer)
	handler.openDoc = func(string) (*pdf.Document, error) {
		return &pdf.Document{Pages: []pdf.Page{
			{Text: "page one text"},
			{Text: "page two text"},
		}}, nil
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, summaryRequest("doc1"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp summary.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "the gist", resp.TakeHomeMessage)

	// All pages feed the generator.
	require.Contains(t, summarizer.gotText, "page one text")
	require.Contains(t, summarizer.gotText, "page two text")
}

func TestSummaryHandler_UnknownDocument(t *testing.T) {
	handler := NewSummaryHandler(&fakeDocs{}, &fakeSummarizer{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, summaryRequest("missing"))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryHandler_OpenFailure(t *testing.T) {
	docs := &fakeDocs{byID: map[string]docstore.Document{
		"doc1": {ID: "doc1", FilePath: "/data/doc1.pdf"},
	}}
	handler := NewSummaryHandler(docs, &fakeSummarizer{})
	handler.openDoc = func(string) (*pdf.Document, error) {
		return nil, errors.New("corrupt file")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, summaryRequest("doc1"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
