package tutor

import (
	"context"
	"fmt"
	"strings"

	"doctutor/internal/contextutil"
	"doctutor/internal/llm"
)

const translatePrompt = `Translate the following text to %s. Output only the translated text, with no preamble.

%s`

// translate renders text in the requested language. Failure returns the
// original text unchanged.
func (a *Agent) translate(ctx context.Context, text, language string) string {
	logger := contextutil.LoggerFromContext(ctx)

	translated, err := a.chat.ChatMessages(ctx, []llm.ChatMessage{
		{Role: "user", Content: fmt.Sprintf(translatePrompt, language, text)},
	})
	if err != nil {
		logger.WarnContext(ctx, "translation failed, keeping original text", "language", language, "error", err)
		return text
	}

	translated = cleanTranslationPrefix(translated)
	if translated == "" {
		return text
	}
	return translated
}

// translationPrefixes are boilerplate openers models sometimes emit despite
// being told not to.
var translationPrefixes = []string{
	"translation:",
	"translated text:",
	"here is the translation:",
	"here's the translation:",
}

// cleanTranslationPrefix strips boilerplate prefixes and surrounding
// whitespace from a translated text.
func cleanTranslationPrefix(text string) string {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, prefix := range translationPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return text
}
