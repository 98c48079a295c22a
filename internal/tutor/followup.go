package tutor

import (
	"context"
	"fmt"
	"strings"

	"doctutor/internal/contextutil"
)

const maxFollowUps = 3

const followUpPrompt = `Based on the question and answer below, suggest up to %d short follow-up questions a curious student might ask next.
Respond with a JSON object of the form {"questions": ["...", "..."]} and nothing else.

Question:
%s

Answer:
%s`

// generateFollowUps asks the model for follow-up question suggestions.
// Any failure degrades to zero questions.
func (a *Agent) generateFollowUps(ctx context.Context, question, answer string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	var out struct {
		Questions []string `json:"questions"`
	}
	prompt := fmt.Sprintf(followUpPrompt, maxFollowUps, question, answer)
	if err := a.structured.ChatJSON(ctx, prompt, &out); err != nil {
		logger.WarnContext(ctx, "failed to generate follow-up questions", "error", err)
		return []string{}
	}

	questions := make([]string, 0, maxFollowUps)
	for _, q := range out.Questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == maxFollowUps {
			break
		}
	}
	return questions
}
