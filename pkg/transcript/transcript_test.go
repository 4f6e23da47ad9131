package transcript

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesSystemThenUser(t *testing.T) {
	ts := NewTranscriptBuilder().
		WithSystemPrompt("rubric").
		WithUserPrompt("who is the current president?").
		Build()

	require.Len(t, ts.Blocks, 2)
	assert.Equal(t, BlockKindSystem, ts.Blocks[0].Kind)
	assert.Equal(t, BlockKindUser, ts.Blocks[1].Kind)
	assert.Equal(t, "rubric", ts.Blocks[0].Text())
	assert.NotEmpty(t, ts.Blocks[0].ID)
}

func TestAppendPreservesOrder(t *testing.T) {
	ts := &Transcript{}
	AppendBlocks(ts,
		NewSystemTextBlock("a"),
		NewUserTextBlock("b"),
		NewAssistantTextBlock("c"),
	)
	require.Len(t, ts.Blocks, 3)
	assert.Equal(t, "a", ts.Blocks[0].Text())
	assert.Equal(t, "c", ts.Blocks[2].Text())
}

func TestLastAssistantText(t *testing.T) {
	ts := &Transcript{}
	assert.Equal(t, "", LastAssistantText(ts))

	AppendBlock(ts, NewAssistantTextBlock("  first  "))
	AppendBlock(ts, NewSystemTextBlock("snapshot"))
	AppendBlock(ts, NewAssistantTextBlock("second"))
	assert.Equal(t, "second", LastAssistantText(ts))
	assert.Equal(t, "", LastAssistantText(nil))
}

func TestSystemTextsContaining(t *testing.T) {
	ts := &Transcript{}
	AppendBlock(ts, NewSystemTextBlock("rubric"))
	AppendBlock(ts, NewSystemTextBlock("EVIDENCE BLOCK (from google):\nsome text"))
	AppendBlock(ts, NewAssistantTextBlock("EVIDENCE in assistant does not count"))
	AppendBlock(ts, NewSystemTextBlock("EVIDENCE (raw, from google):\nmore"))

	got := SystemTextsContaining(ts, "EVIDENCE")
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "from google")
}

func TestCloneIsIndependent(t *testing.T) {
	ts := &Transcript{}
	AppendBlock(ts, NewUserTextBlock("q"))
	cp := ts.Clone()
	cp.Blocks[0].Payload[PayloadKeyText] = "mutated"
	AppendBlock(cp, NewAssistantTextBlock("extra"))

	assert.Equal(t, "q", ts.Blocks[0].Text())
	assert.Len(t, ts.Blocks, 1)
}

func TestFindBlocksByKind(t *testing.T) {
	ts := &Transcript{}
	AppendBlock(ts, NewToolCallBlock("id-1", "google", `{"question":"x"}`))
	AppendBlock(ts, NewToolUseBlock("id-1", `{"ok":true}`))
	AppendBlock(ts, NewAssistantTextBlock("done"))

	calls := FindBlocksByKind(ts, BlockKindToolCall, BlockKindToolUse)
	require.Len(t, calls, 2)
	assert.Equal(t, "id-1", calls[0].ID)
}

func TestFprintTranscript(t *testing.T) {
	ts := NewTranscriptBuilder().
		WithSystemPrompt("rubric").
		WithUserPrompt("question").
		Build()
	AppendBlock(ts, NewToolCallBlock("id-1", "calculator", `{"expression":"2+2"}`))

	var buf bytes.Buffer
	FprintTranscript(&buf, ts)
	out := buf.String()
	assert.Contains(t, out, "system: rubric")
	assert.Contains(t, out, "user: question")
	assert.Contains(t, out, "tool_call: calculator")
}

func TestFprintTraceTruncates(t *testing.T) {
	ts := &Transcript{}
	AppendBlock(ts, NewSystemTextBlock(strings.Repeat("x", maxContentChars+100)))

	var buf bytes.Buffer
	FprintTrace(&buf, ts, "AFTER ASSISTANT")
	out := buf.String()
	assert.Contains(t, out, "TRACE - AFTER ASSISTANT")
	assert.Contains(t, out, "truncated 100 chars")
}

func TestDumpYAMLRoundTrip(t *testing.T) {
	ts := NewTranscriptBuilder().WithUserPrompt("q").Build()
	out, err := DumpYAML(ts)
	require.NoError(t, err)
	assert.Contains(t, out, "kind: user")
	assert.Contains(t, out, "q")
}
