package transcript

import (
	"strings"

	"github.com/google/uuid"
)

// Convenience constructors for commonly used Block shapes.

// NewSystemTextBlock returns a Block representing a system directive.
func NewSystemTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindSystem,
		Role:    RoleSystem,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// NewUserTextBlock returns a Block representing the user question.
func NewUserTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindUser,
		Role:    RoleUser,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// NewAssistantTextBlock returns a Block representing assistant output.
func NewAssistantTextBlock(text string) Block {
	return Block{
		ID:      uuid.NewString(),
		Kind:    BlockKindLLMText,
		Role:    RoleAssistant,
		Payload: map[string]any{PayloadKeyText: text},
	}
}

// NewToolCallBlock returns a Block requesting invocation of a tool.
// id correlates the request with its tool_use result; args carries the raw
// JSON argument string as issued by the model.
func NewToolCallBlock(id, name, args string) Block {
	return Block{
		ID:   id,
		Kind: BlockKindToolCall,
		Role: RoleAssistant,
		Payload: map[string]any{
			PayloadKeyID:   id,
			PayloadKeyName: name,
			PayloadKeyArgs: args,
		},
	}
}

// NewToolUseBlock returns a Block capturing the result of a tool execution.
// id must match the corresponding tool_call id.
func NewToolUseBlock(id, result string) Block {
	return Block{
		ID:   id,
		Kind: BlockKindToolUse,
		Role: RoleTool,
		Payload: map[string]any{
			PayloadKeyID:     id,
			PayloadKeyResult: result,
		},
	}
}

// TranscriptBuilder helps construct the initial Transcript for a session.
type TranscriptBuilder struct {
	blocks []Block
}

func NewTranscriptBuilder() *TranscriptBuilder {
	return &TranscriptBuilder{blocks: []Block{}}
}

func (tb *TranscriptBuilder) WithSystemPrompt(systemText string) *TranscriptBuilder {
	if systemText != "" {
		tb.blocks = append(tb.blocks, NewSystemTextBlock(systemText))
	}
	return tb
}

func (tb *TranscriptBuilder) WithUserPrompt(userText string) *TranscriptBuilder {
	if userText != "" {
		tb.blocks = append(tb.blocks, NewUserTextBlock(userText))
	}
	return tb
}

func (tb *TranscriptBuilder) Build() *Transcript {
	t := &Transcript{ID: uuid.NewString()}
	if len(tb.blocks) > 0 {
		AppendBlocks(t, tb.blocks...)
	}
	return t
}

// LastAssistantText returns the text of the most recent assistant block,
// trimmed, or "" when none exists.
func LastAssistantText(t *Transcript) string {
	if t == nil {
		return ""
	}
	for i := len(t.Blocks) - 1; i >= 0; i-- {
		b := t.Blocks[i]
		if b.Kind == BlockKindLLMText {
			return strings.TrimSpace(b.Text())
		}
	}
	return ""
}

// SystemTextsContaining returns the text of every system block whose content
// contains the given marker, in transcript order.
func SystemTextsContaining(t *Transcript, marker string) []string {
	var out []string
	if t == nil {
		return out
	}
	for _, b := range t.Blocks {
		if b.Kind != BlockKindSystem {
			continue
		}
		if txt := b.Text(); strings.Contains(txt, marker) {
			out = append(out, txt)
		}
	}
	return out
}
