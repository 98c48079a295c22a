// Package summary generates document summaries: a take-home message, topic
// extraction, and per-topic summaries, rendered to HTML for the API.
package summary

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"doctutor/internal/contextutil"
	"doctutor/internal/llm"
)

// ChatClient returns a complete chat reply.
type ChatClient interface {
	ChatMessages(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// StructuredClient returns a JSON completion decoded into out.
type StructuredClient interface {
	ChatJSON(ctx context.Context, prompt string, out any) error
}

// maxInputChars bounds how much document text is sent to the model.
const maxInputChars = 12000

// defaultTopics is used when topic extraction fails.
var defaultTopics = []string{"Key concepts"}

// TopicSummary is one extracted topic and its summary.
type TopicSummary struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Summary is the generated document summary.
type Summary struct {
	TakeHomeMessage string         `json:"take_home_message"`
	Topics          []TopicSummary `json:"topics"`
	HTML            string         `json:"html"`
}

// Generator produces document summaries.
type Generator struct {
	chat       ChatClient
	structured StructuredClient
	markdown   goldmark.Markdown
}

// NewGenerator creates a summary generator.
func NewGenerator(chat ChatClient, structured StructuredClient) *Generator {
	return &Generator{
		chat:       chat,
		structured: structured,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Table,
				extension.Strikethrough,
				extension.Linkify,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				ghhtml.WithUnsafe(),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

const takeHomePrompt = `Read the document excerpt below and state its single most important take-home message in two or three sentences, written for a student.

%s`

const topicsPrompt = `List the main topics covered by the document excerpt below.
Respond with a JSON object of the form {"topics": ["...", "..."]} with at most 5 topics and nothing else.

%s`

const topicSummaryPrompt = `Summarize what the document excerpt below says about "%s" in one short paragraph for a student.

%s`

// Generate produces the summary for a document's extracted text. The
// take-home message is required; topic extraction and per-topic summaries
// degrade on failure.
func (g *Generator) Generate(ctx context.Context, docText string) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	excerpt := docText
	if len(excerpt) > maxInputChars {
		excerpt = excerpt[:maxInputChars]
	}
	if strings.TrimSpace(excerpt) == "" {
		return nil, fmt.Errorf("document has no extractable text")
	}

	takeHome, err := g.chat.ChatMessages(ctx, []llm.ChatMessage{
		{Role: "user", Content: fmt.Sprintf(takeHomePrompt, excerpt)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate take-home message: %w", err)
	}
	takeHome = strings.TrimSpace(takeHome)

	topics := g.extractTopics(ctx, excerpt)

	summaries := make([]TopicSummary, 0, len(topics))
	for _, topic := range topics {
		text, err := g.chat.ChatMessages(ctx, []llm.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(topicSummaryPrompt, topic, excerpt)},
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to summarize topic", "topic", topic, "error", err)
			continue
		}
		summaries = append(summaries, TopicSummary{Name: topic, Summary: strings.TrimSpace(text)})
	}

	html, err := g.renderHTML(takeHome, summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to render summary: %w", err)
	}

	logger.InfoContext(ctx, "summary generated", "topics", len(summaries))
	return &Summary{
		TakeHomeMessage: takeHome,
		Topics:          summaries,
		HTML:            html,
	}, nil
}

// extractTopics asks the model for the document's main topics, falling back
// to a default list on failure.
func (g *Generator) extractTopics(ctx context.Context, excerpt string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	var out struct {
		Topics []string `json:"topics"`
	}
	if err := g.structured.ChatJSON(ctx, fmt.Sprintf(topicsPrompt, excerpt), &out); err != nil {
		logger.WarnContext(ctx, "topic extraction failed, using default topics", "error", err)
		return defaultTopics
	}

	topics := make([]string, 0, len(out.Topics))
	for _, topic := range out.Topics {
		topic = strings.TrimSpace(topic)
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	if len(topics) == 0 {
		return defaultTopics
	}
	return topics
}

// renderHTML assembles the summary markdown and converts it with goldmark.
func (g *Generator) renderHTML(takeHome string, topics []TopicSummary) (string, error) {
	var md strings.Builder
	md.WriteString("# Take-home message\n\n")
	md.WriteString(takeHome)
	md.WriteString("\n")
	for _, topic := range topics {
		fmt.Fprintf(&md, "\n## %s\n\n%s\n", topic.Name, topic.Summary)
	}

	var buf bytes.Buffer
	if err := g.markdown.Convert([]byte(md.String()), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
