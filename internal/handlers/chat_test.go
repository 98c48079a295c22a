package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"doctutor/internal/docstore"
	"doctutor/internal/session"
	"doctutor/internal/stream"
	"doctutor/internal/tutor"
)

type fakeAgent struct {
	resp   session.TurnResponse
	err    error
	events []stream.Event
	gotReq session.TurnRequest
}

func (f *fakeAgent) Turn(_ context.Context, req session.TurnRequest, onEvent func(stream.Event)) (session.TurnResponse, error) {
	f.gotReq = req
	if onEvent != nil {
		for _, event := range f.events {
			onEvent(event)
		}
	}
	return f.resp, f.err
}

type fakeDocs struct {
	byID map[string]docstore.Document
}

func (f *fakeDocs) Lookup(id string) (docstore.Document, error) {
	doc, ok := f.byID[id]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%w: %s", docstore.ErrUnknownDocument, id)
	}
	return doc, nil
}

func chatBody(t *testing.T, req ChatRequest) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func TestChatHandler(t *testing.T) {
	agent := &fakeAgent{resp: session.TurnResponse{
		Answer:            "the answer",
		FollowUpQuestions: []string{"next?"},
		Sources:           map[string]float64{"passage": 0.8},
	}}
	docs := &fakeDocs{byID: map[string]docstore.Document{
		"doc1": {ID: "doc1", FilePath: "/data/doc1.pdf", Folder: "/data/embedded_content/doc1"},
	}}
	handler := NewChatHandler(agent, docs)

	body := chatBody(t, ChatRequest{
		Question:    "what is this?",
		DocumentIDs: []string{"doc1"},
		Mode:        "basic",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp session.TurnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "the answer", resp.Answer)
	require.Equal(t, 0.8, resp.Sources["passage"])

	// Document IDs are resolved to file paths and index folders.
	require.Equal(t, []string{"/data/doc1.pdf"}, agent.gotReq.FilePaths)
	require.Equal(t, []string{"/data/embedded_content/doc1"}, agent.gotReq.IndexFolders)
	require.Equal(t, session.ModeBasic, agent.gotReq.Session.Mode)
}

func TestChatHandler_UnknownDocument(t *testing.T) {
	handler := NewChatHandler(&fakeAgent{}, &fakeDocs{})

	body := chatBody(t, ChatRequest{Question: "q", DocumentIDs: []string{"missing"}})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatHandler_InvalidMode(t *testing.T) {
	handler := NewChatHandler(&fakeAgent{}, &fakeDocs{})

	body := chatBody(t, ChatRequest{Question: "q", Mode: "turbo"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_InvalidBody(t *testing.T) {
	handler := NewChatHandler(&fakeAgent{}, &fakeDocs{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	handler := NewChatHandler(&fakeAgent{}, &fakeDocs{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation error", &tutor.ValidationError{Field: "question", Message: "cannot be empty"}, http.StatusBadRequest},
		{"external service", fmt.Errorf("wrapped: %w", tutor.ErrExternalService), http.StatusBadGateway},
		{"not found", fmt.Errorf("wrapped: %w", tutor.ErrNotFound), http.StatusNotFound},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewChatHandler(&fakeAgent{err: tt.err}, &fakeDocs{})

			body := chatBody(t, ChatRequest{Question: "q"})
			req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestChatHandler_Streaming(t *testing.T) {
	agent := &fakeAgent{
		resp: session.TurnResponse{Answer: "streamed answer"},
		events: []stream.Event{
			{Type: stream.EventResponseDelta, Text: "streamed "},
			{Type: stream.EventResponseDelta, Text: "answer"},
		},
	}
	handler := NewChatHandler(agent, &fakeDocs{})

	body := chatBody(t, ChatRequest{Question: "q"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat?stream=true", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	require.Contains(t, out, `"response_delta"`)
	require.Contains(t, out, "streamed answer")
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "data: [DONE]"))
}
