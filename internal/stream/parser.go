// Package stream parses the tagged tutoring output stream incrementally.
// Model output interleaves free text with tagged sections such as
// <thinking>...</thinking>, <response>...</response>,
// <followup_question>...</followup_question> and key-value records like
// <source>{key}{value}</source>. The parser consumes arbitrary chunk
// boundaries, emits typed events as sections complete, and accumulates the
// structured turn outcome.
package stream

import (
	"regexp"
	"strconv"
	"strings"
)

// EventType identifies what a parser event carries.
type EventType string

const (
	// EventThinkingDelta is a fragment of the model's reasoning text.
	EventThinkingDelta EventType = "thinking_delta"
	// EventResponseDelta is a fragment of the answer shown to the student.
	EventResponseDelta EventType = "response_delta"
	// EventFollowUpQuestion is one complete suggested follow-up question.
	EventFollowUpQuestion EventType = "followup_question"
	// EventSource is one source record with its relevance score.
	EventSource EventType = "source"
	// EventSourcePage is one raw source-page record.
	EventSourcePage EventType = "source_page"
	// EventRefinedSourcePage is one refined source-page record.
	EventRefinedSourcePage EventType = "refined_source_page"
	// EventRefinedSourceIndex is one refined source file-index record.
	EventRefinedSourceIndex EventType = "refined_source_index"
)

// Event is one typed occurrence in the stream. Text carries delta fragments
// and questions; Key/Value carry record payloads.
type Event struct {
	Type  EventType
	Text  string
	Key   string
	Value string
}

// Result is the accumulated outcome of a fully parsed stream.
type Result struct {
	Thinking           string
	Answer             string
	FollowUpQuestions  []string
	Sources            map[string]float64
	SourcePages        map[string]int
	RefinedSourcePages map[string]int
	RefinedSourceIndex map[string]int
}

type section int

const (
	secNone section = iota
	secThinking
	secResponse
	secOriginalResponse
	secFollowUp
	secSource
	secSourcePage
	secRefinedSourcePage
	secRefinedSourceIndex
)

// openTags maps tag names to the section they start. appendix only brackets
// the record region and carries no content of its own.
var openTags = map[string]section{
	"thinking":             secThinking,
	"response":             secResponse,
	"original_response":    secOriginalResponse,
	"followup_question":    secFollowUp,
	"source":               secSource,
	"source_page":          secSourcePage,
	"refined_source_page":  secRefinedSourcePage,
	"refined_source_index": secRefinedSourceIndex,
	"appendix":             secNone,
}

// maxTagLen bounds how long a pending "<..." run can be before it is treated
// as literal text rather than an unterminated tag.
const maxTagLen = 24

var recordPattern = regexp.MustCompile(`(?s)\{(.*?)\}\{(.*?)\}`)

// Parser is an incremental tagged-stream parser. Not safe for concurrent use.
type Parser struct {
	handler func(Event)
	pending string
	current section

	thinking         strings.Builder
	response         strings.Builder
	originalResponse strings.Builder
	buffered         strings.Builder // followup/record body, flushed on close tag

	result Result
}

// NewParser creates a parser. handler may be nil when only Result is needed;
// it is called synchronously from Feed and Close.
func NewParser(handler func(Event)) *Parser {
	return &Parser{
		handler: handler,
		result: Result{
			Sources:            make(map[string]float64),
			SourcePages:        make(map[string]int),
			RefinedSourcePages: make(map[string]int),
			RefinedSourceIndex: make(map[string]int),
		},
	}
}

// Feed consumes the next chunk of model output. Chunks may split tags, record
// payloads, and multi-byte runes at any position.
func (p *Parser) Feed(chunk string) {
	p.pending += chunk

	for {
		lt := strings.IndexByte(p.pending, '<')
		if lt < 0 {
			p.emitText(p.pending)
			p.pending = ""
			return
		}

		p.emitText(p.pending[:lt])
		p.pending = p.pending[lt:]

		gt := strings.IndexByte(p.pending, '>')
		if gt < 0 {
			if len(p.pending) > maxTagLen {
				// Too long to be a tag, treat the bracket as literal text.
				p.emitText(p.pending[:1])
				p.pending = p.pending[1:]
				continue
			}
			return // wait for the rest of the tag
		}

		tag := p.pending[1:gt]
		name, closing := strings.CutPrefix(tag, "/")
		if _, known := openTags[name]; !known {
			p.emitText(p.pending[:1])
			p.pending = p.pending[1:]
			continue
		}

		p.pending = p.pending[gt+1:]
		if closing {
			p.closeSection(openTags[name])
		} else {
			p.current = openTags[name]
		}
	}
}

// Close flushes any trailing text. Unterminated sections are dropped rather
// than guessed at.
func (p *Parser) Close() {
	p.emitText(p.pending)
	p.pending = ""
	p.current = secNone
	p.buffered.Reset()
}

// Result returns the accumulated structured outcome. The answer falls back
// from <response> to <original_response> to <thinking>, matching how
// downstream rendering picks what to show.
func (p *Parser) Result() Result {
	switch {
	case p.response.Len() > 0:
		p.result.Answer = strings.TrimSpace(p.response.String())
	case p.originalResponse.Len() > 0:
		p.result.Answer = strings.TrimSpace(p.originalResponse.String())
	default:
		p.result.Answer = strings.TrimSpace(p.thinking.String())
	}
	p.result.Thinking = strings.TrimSpace(p.thinking.String())
	return p.result
}

func (p *Parser) emitText(text string) {
	if text == "" {
		return
	}
	switch p.current {
	case secThinking:
		p.thinking.WriteString(text)
		p.emit(Event{Type: EventThinkingDelta, Text: text})
	case secResponse:
		p.response.WriteString(text)
		p.emit(Event{Type: EventResponseDelta, Text: text})
	case secOriginalResponse:
		p.originalResponse.WriteString(text)
	case secFollowUp, secSource, secSourcePage, secRefinedSourcePage, secRefinedSourceIndex:
		p.buffered.WriteString(text)
	default:
		// Progress chatter between sections is not part of the result.
	}
}

func (p *Parser) closeSection(sec section) {
	body := strings.TrimSpace(p.buffered.String())
	p.buffered.Reset()
	p.current = secNone

	switch sec {
	case secFollowUp:
		if body != "" {
			p.result.FollowUpQuestions = append(p.result.FollowUpQuestions, body)
			p.emit(Event{Type: EventFollowUpQuestion, Text: body})
		}
	case secSource:
		if key, value, ok := parseRecord(body); ok {
			if score, err := strconv.ParseFloat(value, 64); err == nil {
				p.result.Sources[key] = score
			}
			p.emit(Event{Type: EventSource, Key: key, Value: value})
		}
	case secSourcePage:
		p.closeIntRecord(body, EventSourcePage, p.result.SourcePages)
	case secRefinedSourcePage:
		p.closeIntRecord(body, EventRefinedSourcePage, p.result.RefinedSourcePages)
	case secRefinedSourceIndex:
		p.closeIntRecord(body, EventRefinedSourceIndex, p.result.RefinedSourceIndex)
	}
}

func (p *Parser) closeIntRecord(body string, eventType EventType, into map[string]int) {
	key, value, ok := parseRecord(body)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(value); err == nil {
		into[key] = n
	}
	p.emit(Event{Type: eventType, Key: key, Value: value})
}

func (p *Parser) emit(event Event) {
	if p.handler != nil {
		p.handler(event)
	}
}

// parseRecord extracts the {key}{value} payload of a record body.
func parseRecord(body string) (key, value string, ok bool) {
	m := recordPattern.FindStringSubmatch(body)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
