package rag

import (
	"context"
	"fmt"
	"strings"
)

// StructuredCompleter produces a JSON completion for a prompt and decodes it
// into out. Satisfied by *llm.Client.
type StructuredCompleter interface {
	ChatJSON(ctx context.Context, prompt string, out any) error
}

// ImageJudgment is the model's assessment of one candidate figure.
type ImageJudgment struct {
	ActualFigureNumber string  `json:"actual_figure_number"`
	IsRelevant         bool    `json:"is_relevant"`
	RelevanceScore     float64 `json:"relevance_score"`
	Explanation        string  `json:"explanation"`
}

const judgeSystemPrompt = `You are an expert at evaluating whether a figure is relevant to a student's question about a document.
Given the figure's description and the question, decide whether showing this figure would help answer the question.
Respond with a JSON object with exactly these keys:
  "actual_figure_number": the figure number mentioned in the description, or "" if none,
  "is_relevant": true or false,
  "relevance_score": a number between 0.0 and 1.0,
  "explanation": one short sentence.
Respond with the JSON object only.`

// judgeImage asks the model whether an image is relevant to the question.
// descriptions are the catalog descriptions attached to the image.
func judgeImage(ctx context.Context, completer StructuredCompleter, question string, descriptions []string) (ImageJudgment, error) {
	prompt := fmt.Sprintf("%s\n\nFigure description:\n%s\n\nQuestion:\n%s",
		judgeSystemPrompt, strings.Join(descriptions, "\n"), question)

	var judgment ImageJudgment
	if err := completer.ChatJSON(ctx, prompt, &judgment); err != nil {
		return ImageJudgment{}, fmt.Errorf("failed to judge image relevance: %w", err)
	}
	if judgment.RelevanceScore < 0 {
		judgment.RelevanceScore = 0
	}
	if judgment.RelevanceScore > 1 {
		judgment.RelevanceScore = 1
	}
	return judgment, nil
}
