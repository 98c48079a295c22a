package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleStream = "<thinking>Considering the diagram.</thinking>" +
	"\n\n**Generating the response ...**\n\n" +
	"<response>\n\nLeaves look green because chlorophyll reflects green light.</response>" +
	"<followup_question>What absorbs the other wavelengths?</followup_question>" +
	"<followup_question>Why are some leaves red?</followup_question>" +
	"<appendix>" +
	"<source>{chlorophyll reflects green}{0.95}</source>" +
	"<source_page>{chlorophyll reflects green}{2}</source_page>" +
	"<refined_source_page>{chlorophyll reflects green}{3}</refined_source_page>" +
	"<refined_source_index>{chlorophyll reflects green}{1}</refined_source_index>" +
	"</appendix>"

func feedInPieces(p *Parser, s string, size int) {
	for len(s) > 0 {
		n := size
		if n > len(s) {
			n = len(s)
		}
		p.Feed(s[:n])
		s = s[n:]
	}
	p.Close()
}

func TestParser_FullStream(t *testing.T) {
	p := NewParser(nil)
	p.Feed(sampleStream)
	p.Close()

	result := p.Result()
	require.Equal(t, "Leaves look green because chlorophyll reflects green light.", result.Answer)
	require.Equal(t, "Considering the diagram.", result.Thinking)
	require.Equal(t, []string{
		"What absorbs the other wavelengths?",
		"Why are some leaves red?",
	}, result.FollowUpQuestions)
	require.InDelta(t, 0.95, result.Sources["chlorophyll reflects green"], 1e-9)
	require.Equal(t, 2, result.SourcePages["chlorophyll reflects green"])
	require.Equal(t, 3, result.RefinedSourcePages["chlorophyll reflects green"])
	require.Equal(t, 1, result.RefinedSourceIndex["chlorophyll reflects green"])
}

func TestParser_ChunkBoundariesDoNotMatter(t *testing.T) {
	// Tags and record payloads may be split at any byte position.
	for _, size := range []int{1, 2, 3, 7, 64} {
		p := NewParser(nil)
		feedInPieces(p, sampleStream, size)

		result := p.Result()
		require.Equal(t, "Leaves look green because chlorophyll reflects green light.", result.Answer, "chunk size %d", size)
		require.Len(t, result.FollowUpQuestions, 2, "chunk size %d", size)
		require.Len(t, result.Sources, 1, "chunk size %d", size)
	}
}

func TestParser_AnswerFallsBackToThinking(t *testing.T) {
	p := NewParser(nil)
	p.Feed("<thinking>Only thinking, no response tag.</thinking>")
	p.Close()

	require.Equal(t, "Only thinking, no response tag.", p.Result().Answer)
}

func TestParser_OriginalResponsePreferredOverThinking(t *testing.T) {
	p := NewParser(nil)
	p.Feed("<thinking>internal</thinking><original_response>the untranslated answer</original_response>")
	p.Close()

	require.Equal(t, "the untranslated answer", p.Result().Answer)
}

func TestParser_EventsEmitted(t *testing.T) {
	var events []Event
	p := NewParser(func(e Event) { events = append(events, e) })
	p.Feed("<response>partial")
	p.Feed(" answer</response><source>{key text}{0.5}</source>")
	p.Close()

	require.Len(t, events, 3)
	require.Equal(t, EventResponseDelta, events[0].Type)
	require.Equal(t, "partial", events[0].Text)
	require.Equal(t, EventResponseDelta, events[1].Type)
	require.Equal(t, " answer", events[1].Text)
	require.Equal(t, EventSource, events[2].Type)
	require.Equal(t, "key text", events[2].Key)
	require.Equal(t, "0.5", events[2].Value)
}

func TestParser_LiteralAngleBrackets(t *testing.T) {
	p := NewParser(nil)
	p.Feed("<response>for x < y the limit is 0</response>")
	p.Close()

	require.Equal(t, "for x < y the limit is 0", p.Result().Answer)
}

func TestParser_MalformedRecordSkipped(t *testing.T) {
	p := NewParser(nil)
	p.Feed("<source>not a record</source><response>ok</response>")
	p.Close()

	result := p.Result()
	require.Empty(t, result.Sources)
	require.Equal(t, "ok", result.Answer)
}

func TestParser_ProgressChatterIgnored(t *testing.T) {
	p := NewParser(nil)
	p.Feed("**Retrieving sources ...**<response>answer</response>trailing noise")
	p.Close()

	require.Equal(t, "answer", p.Result().Answer)
}
