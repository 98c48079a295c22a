// Package tutor drives one tutoring turn end to end: answer generation over
// the chat history, source attribution for the answer, follow-up question
// suggestions, and optional translation.
package tutor

import (
	"context"
	"fmt"
	"strings"

	"doctutor/internal/contextutil"
	"doctutor/internal/llm"
	"doctutor/internal/rag"
	"doctutor/internal/session"
	"doctutor/internal/stream"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_clients.go -package=mocks doctutor/internal/tutor StreamClient,ChatClient,StructuredClient,Attributor

// StreamClient streams a chat completion chunk by chunk.
type StreamClient interface {
	StreamChat(ctx context.Context, messages []llm.ChatMessage, callback func(chunk string) error) error
}

// ChatClient returns a complete chat reply.
type ChatClient interface {
	ChatMessages(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// StructuredClient returns a JSON completion decoded into out.
type StructuredClient interface {
	ChatJSON(ctx context.Context, prompt string, out any) error
}

// Attributor resolves the sources supporting an answer.
type Attributor interface {
	Attribute(ctx context.Context, req rag.Request) (*rag.Attribution, error)
}

// Agent orchestrates tutoring turns.
type Agent struct {
	streamer   StreamClient
	chat       ChatClient
	structured StructuredClient
	attributor Attributor
}

// NewAgent creates a tutoring agent.
func NewAgent(streamer StreamClient, chat ChatClient, structured StructuredClient, attributor Attributor) *Agent {
	return &Agent{
		streamer:   streamer,
		chat:       chat,
		structured: structured,
		attributor: attributor,
	}
}

const answerSystemPrompt = `You are a patient tutor helping a student understand a document they are reading.
Ground your answer in the document content from the conversation. Be concise and concrete.
Wrap your private reasoning in <thinking>...</thinking> tags and the answer shown to the student in <response>...</response> tags.`

// Turn runs one tutoring turn. onEvent, when non-nil, receives parser events
// as the answer streams in. Answer generation failures are fatal; source
// attribution, follow-up generation, and translation degrade instead.
func (a *Agent) Turn(ctx context.Context, req session.TurnRequest, onEvent func(stream.Event)) (session.TurnResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Question) == "" {
		logger.WarnContext(ctx, "empty question in turn request")
		return session.TurnResponse{}, &ValidationError{Field: "question", Message: "cannot be empty"}
	}

	parser := stream.NewParser(onEvent)
	messages := a.buildMessages(req)
	if err := a.streamer.StreamChat(ctx, messages, func(chunk string) error {
		parser.Feed(chunk)
		return nil
	}); err != nil {
		logger.ErrorContext(ctx, "failed to stream answer", "error", err)
		return session.TurnResponse{}, fmt.Errorf("%w: failed to generate answer: %v", ErrExternalService, err)
	}
	parser.Close()

	parsed := parser.Result()
	answer := parsed.Answer
	if answer == "" {
		return session.TurnResponse{}, fmt.Errorf("%w: model returned an empty answer", ErrExternalService)
	}

	response := session.TurnResponse{
		Answer:             answer,
		Thinking:           parsed.Thinking,
		FollowUpQuestions:  []string{},
		Sources:            map[string]float64{},
		SourcePages:        map[string]int{},
		RefinedSourcePages: map[string]int{},
		RefinedSourceIndex: map[string]int{},
	}

	if req.Session.Mode != session.ModeLite && len(req.FilePaths) > 0 {
		attribution, err := a.attributor.Attribute(ctx, rag.Request{
			Mode:         req.Session.Mode,
			Question:     req.Question,
			Answer:       answer,
			FilePaths:    req.FilePaths,
			IndexFolders: req.IndexFolders,
		})
		if err != nil {
			// The answer is still useful without citations.
			logger.WarnContext(ctx, "source attribution failed, returning answer without sources", "error", err)
		} else {
			response.Sources = attribution.Sources
			response.SourcePages = attribution.RawPages
			response.RefinedSourcePages = attribution.RefinedPages
			response.RefinedSourceIndex = attribution.RefinedFileIndex
		}
	}

	response.FollowUpQuestions = a.generateFollowUps(ctx, req.Question, answer)

	if language := req.Session.Language; language != "" && !strings.EqualFold(language, "english") {
		response.Answer = a.translate(ctx, response.Answer, language)
		for i, question := range response.FollowUpQuestions {
			response.FollowUpQuestions[i] = a.translate(ctx, question, language)
		}
	}

	logger.InfoContext(ctx, "turn complete",
		"mode", req.Session.Mode,
		"answer_length", len(response.Answer),
		"sources", len(response.Sources),
		"follow_ups", len(response.FollowUpQuestions),
	)
	return response, nil
}

// buildMessages assembles the system prompt, prior history, and the question.
func (a *Agent) buildMessages(req session.TurnRequest) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(req.Session.History)+2)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: answerSystemPrompt})
	for _, turn := range req.Session.History {
		messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: "user", Content: req.Question})
	return messages
}
