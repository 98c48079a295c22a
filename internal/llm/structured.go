package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"doctutor/internal/contextutil"
)

// ChatJSON sends a prompt that demands a JSON reply and unmarshals the result
// into out. Models often wrap JSON in markdown fences or prose, so the first
// balanced JSON value in the reply is extracted before decoding. If decoding
// fails, one repair round-trip is made asking the model to re-emit valid JSON.
func (c *Client) ChatJSON(ctx context.Context, prompt string, out any) error {
	logger := contextutil.LoggerFromContext(ctx)

	reply, err := c.Chat(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to get structured completion: %w", err)
	}

	if err := decodeJSONReply(reply, out); err == nil {
		return nil
	}
	logger.DebugContext(ctx, "Structured reply did not parse, retrying once", "reply_len", len(reply))

	repairPrompt := fmt.Sprintf(
		"The following text was supposed to be a single valid JSON value but is not. "+
			"Reply with only the corrected JSON, no explanation, no markdown fences.\n\n%s", reply)
	repaired, err := c.Chat(ctx, repairPrompt)
	if err != nil {
		return fmt.Errorf("failed to repair structured completion: %w", err)
	}

	if err := decodeJSONReply(repaired, out); err != nil {
		return fmt.Errorf("failed to decode structured completion: %w", err)
	}
	return nil
}

// decodeJSONReply extracts the first JSON object or array from reply and
// unmarshals it into out.
func decodeJSONReply(reply string, out any) error {
	raw := extractJSON(reply)
	if raw == "" {
		return fmt.Errorf("no JSON value found in reply")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	return nil
}

// extractJSON returns the first balanced {...} or [...] span in s, or "".
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	// Strip markdown code fences if present
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
