// Package session holds the conversational state carried across tutoring
// turns: chat history, response language, and the operating mode.
package session

import "fmt"

// Mode selects how much work a tutoring turn performs.
type Mode string

const (
	// ModeLite answers from chat context only, without source attribution.
	ModeLite Mode = "lite"
	// ModeBasic answers with source attribution from local indexes.
	ModeBasic Mode = "basic"
	// ModeRemote answers with source attribution from the remote vector store.
	ModeRemote Mode = "remote"
)

// ParseMode validates a mode string, defaulting empty input to ModeBasic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLite, ModeBasic, ModeRemote:
		return Mode(s), nil
	case "":
		return ModeBasic, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Turn is one prior exchange message.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Session is the per-conversation state sent with each request.
type Session struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Mode     Mode   `json:"mode"`
	History  []Turn `json:"history"`
}
