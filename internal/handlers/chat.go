package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"doctutor/internal/contextutil"
	"doctutor/internal/docstore"
	"doctutor/internal/session"
	"doctutor/internal/stream"
)

// TurnRunner runs one tutoring turn. Satisfied by *tutor.Agent.
type TurnRunner interface {
	Turn(ctx context.Context, req session.TurnRequest, onEvent func(stream.Event)) (session.TurnResponse, error)
}

// DocumentResolver looks up registered documents. Satisfied by
// *docstore.Store.
type DocumentResolver interface {
	Lookup(id string) (docstore.Document, error)
}

// ChatHandler handles tutoring turn requests.
type ChatHandler struct {
	agent TurnRunner
	docs  DocumentResolver
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(agent TurnRunner, docs DocumentResolver) *ChatHandler {
	return &ChatHandler{agent: agent, docs: docs}
}

// ChatRequest is the HTTP payload for one tutoring turn.
type ChatRequest struct {
	Question    string         `json:"question"`
	DocumentIDs []string       `json:"document_ids"`
	Mode        string         `json:"mode,omitempty"`
	Language    string         `json:"language,omitempty"`
	History     []session.Turn `json:"history,omitempty"`
}

// ServeHTTP handles POST /api/chat. With ?stream=true the answer is streamed
// as Server-Sent Events carrying JSON-encoded parser events, followed by the
// full turn response and a [DONE] marker.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		logger.WarnContext(ctx, "invalid mode", "mode", req.Mode)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode: %s", req.Mode))
		return
	}

	turnReq := session.TurnRequest{
		Session: session.Session{
			Language: req.Language,
			Mode:     mode,
			History:  req.History,
		},
		Question: req.Question,
	}
	for _, id := range req.DocumentIDs {
		doc, err := h.docs.Lookup(id)
		if err != nil {
			logger.WarnContext(ctx, "unknown document in chat request", "id", id)
			writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown document: %s", id))
			return
		}
		turnReq.FilePaths = append(turnReq.FilePaths, doc.FilePath)
		turnReq.IndexFolders = append(turnReq.IndexFolders, doc.Folder)
	}

	if r.URL.Query().Get("stream") == "true" {
		h.serveStreaming(w, r, turnReq)
		return
	}

	resp, err := h.agent.Turn(ctx, turnReq, nil)
	if err != nil {
		handleDomainError(ctx, w, err, "Failed to process turn")
		return
	}
	writeJSON(ctx, w, resp)
}

// serveStreaming runs the turn while forwarding parser events over SSE.
func (h *ChatHandler) serveStreaming(w http.ResponseWriter, r *http.Request, turnReq session.TurnRequest) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	resp, err := h.agent.Turn(ctx, turnReq, func(event stream.Event) {
		writeEvent(event)
	})
	if err != nil {
		logger.ErrorContext(ctx, "streaming turn failed", "error", err)
		writeEvent(ErrorResponse{Error: err.Error()})
		return
	}

	writeEvent(resp)
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}
