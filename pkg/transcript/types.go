package transcript

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// BlockKind identifies the variant of a transcript block.
type BlockKind int

const (
	// BlockKindSystem is a system directive (session rubric, snapshot,
	// evidence block, reflection directive).
	BlockKindSystem BlockKind = iota
	// BlockKindUser is the user question.
	BlockKindUser
	// BlockKindLLMText is assistant-generated text.
	BlockKindLLMText
	// BlockKindToolCall is a model-issued request to invoke a tool.
	BlockKindToolCall
	// BlockKindToolUse captures the payload returned by a tool execution.
	BlockKindToolUse
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindSystem:
		return "system"
	case BlockKindUser:
		return "user"
	case BlockKindLLMText:
		return "llm_text"
	case BlockKindToolCall:
		return "tool_call"
	case BlockKindToolUse:
		return "tool_use"
	default:
		return "other"
	}
}

// MarshalYAML renders the kind as its string enum.
func (k BlockKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML accepts the string enum form.
func (k *BlockKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "system":
		*k = BlockKindSystem
	case "user":
		*k = BlockKindUser
	case "llm_text":
		*k = BlockKindLLMText
	case "tool_call":
		*k = BlockKindToolCall
	case "tool_use":
		*k = BlockKindToolUse
	default:
		return fmt.Errorf("unknown block kind %q", s)
	}
	return nil
}

// Block is a single atomic entry in a Transcript.
type Block struct {
	ID      string         `yaml:"id,omitempty" json:"id,omitempty"`
	Kind    BlockKind      `yaml:"kind" json:"kind"`
	Role    string         `yaml:"role,omitempty" json:"role,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Transcript is the ordered, append-only conversation owned by a single
// agent run. Blocks are never edited or reordered once appended.
type Transcript struct {
	ID     string  `yaml:"id,omitempty" json:"id,omitempty"`
	Blocks []Block `yaml:"blocks" json:"blocks"`
}

// Standard keys used in Block.Payload maps.
const (
	PayloadKeyText   = "text"
	PayloadKeyID     = "id"
	PayloadKeyName   = "name"
	PayloadKeyArgs   = "args"
	PayloadKeyResult = "result"
)

// Role string constants used for human roles in blocks.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Clone returns a deep copy of the Transcript suitable for mutation without
// affecting the original. Payload maps are copied one level deep.
func (t *Transcript) Clone() *Transcript {
	if t == nil {
		return nil
	}
	out := &Transcript{ID: t.ID}
	if len(t.Blocks) == 0 {
		return out
	}
	out.Blocks = make([]Block, len(t.Blocks))
	for i := range t.Blocks {
		b := t.Blocks[i]
		if b.Payload != nil {
			cp := make(map[string]any, len(b.Payload))
			for k, v := range b.Payload {
				cp[k] = v
			}
			b.Payload = cp
		}
		out.Blocks[i] = b
	}
	return out
}

// AppendBlock appends a Block to the Transcript.
func AppendBlock(t *Transcript, b Block) {
	t.Blocks = append(t.Blocks, b)
}

// AppendBlocks appends multiple Blocks preserving their order.
func AppendBlocks(t *Transcript, blocks ...Block) {
	for _, b := range blocks {
		AppendBlock(t, b)
	}
}

// FindBlocksByKind returns blocks of the requested kinds in transcript order.
func FindBlocksByKind(t *Transcript, kinds ...BlockKind) []Block {
	lookup := map[BlockKind]bool{}
	for _, k := range kinds {
		lookup[k] = true
	}
	ret := make([]Block, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		if lookup[b.Kind] {
			ret = append(ret, b)
		}
	}
	return ret
}

// Text returns the text payload of a block, or "" when absent.
func (b Block) Text() string {
	if b.Payload == nil {
		return ""
	}
	s, _ := b.Payload[PayloadKeyText].(string)
	return s
}
