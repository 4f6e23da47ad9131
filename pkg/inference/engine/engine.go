package engine

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/go-go-golems/freshloop/pkg/transcript"
)

// ToolSpec advertises a callable tool to the model.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// ToolRequest is a model-issued request to invoke one registered tool.
type ToolRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// AssistantTurn is one assistant response: text content plus at most one
// tool request. The loop protocol forbids more than one request per turn.
type AssistantTurn struct {
	Content     string
	ToolRequest *ToolRequest
}

// CompletionRequest carries everything a backend needs for one model call.
// Tools is nil when tool calling is withheld for the round.
type CompletionRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Blocks      []transcript.Block
	Tools       []ToolSpec
}

// Engine is an LLM completion backend. Implementations retry internally on
// rate-limit and transient server errors with linear backoff and propagate
// any other failure; on permanent retry exhaustion they return a sentinel
// content string rather than an error.
type Engine interface {
	Complete(ctx context.Context, req CompletionRequest) (*AssistantTurn, error)
}

// SentinelRetryExhausted is returned as assistant content when the backend
// gives up after its retry budget.
const SentinelRetryExhausted = "[ERROR] rate limit retry exceeded"
