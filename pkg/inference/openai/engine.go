package openai

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/freshloop/pkg/inference/engine"
	"github.com/go-go-golems/freshloop/pkg/transcript"
)

const maxRetries = 3

// Engine implements engine.Engine on the OpenAI chat completions API.
type Engine struct {
	client *go_openai.Client
	sleep  func(time.Duration)
}

type Option func(*Engine)

// WithClient overrides the underlying API client (used by tests).
func WithClient(client *go_openai.Client) Option {
	return func(e *Engine) { e.client = client }
}

// WithSleep overrides the retry sleep function (used by tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// NewEngine creates an engine authenticated with apiKey. When apiKey is
// empty the OPENAI_API_KEY environment variable is used.
func NewEngine(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	e := &Engine{sleep: time.Sleep}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		e.client = go_openai.NewClient(apiKey)
	}
	return e, nil
}

// Complete sends the transcript to the chat completions endpoint. Rate
// limits and transient server errors are retried with linear backoff
// between attempts (1s, 2s); after three failed attempts a sentinel
// content turn is returned. Any other failure propagates to the caller.
func (e *Engine) Complete(ctx context.Context, req engine.CompletionRequest) (*engine.AssistantTurn, error) {
	chatReq := buildChatRequest(req)
	log.Debug().
		Str("model", req.Model).
		Int("num_messages", len(chatReq.Messages)).
		Int("num_tools", len(chatReq.Tools)).
		Int("max_tokens", req.MaxTokens).
		Msg("openai: chat completion request")

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := e.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			if !isTransient(err) {
				return nil, errors.Wrap(err, "chat completion")
			}
			if attempt == maxRetries-1 {
				break
			}
			backoff := time.Duration(attempt+1) * time.Second
			log.Warn().Err(err).Dur("backoff", backoff).Int("attempt", attempt+1).
				Msg("openai: transient error, backing off")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			e.sleep(backoff)
			continue
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("chat completion returned no choices")
		}
		return assistantTurnFromMessage(resp.Choices[0].Message), nil
	}

	return &engine.AssistantTurn{Content: engine.SentinelRetryExhausted}, nil
}

func isTransient(err error) bool {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return false
}

func buildChatRequest(req engine.CompletionRequest) go_openai.ChatCompletionRequest {
	out := go_openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  BuildChatMessages(req.Blocks),
		MaxTokens: req.MaxTokens,
	}
	// go-openai drops a zero temperature because of omitempty; the smallest
	// positive float32 survives serialization and behaves like 0.
	if req.Temperature == 0 {
		out.Temperature = math.SmallestNonzeroFloat32
	} else {
		out.Temperature = float32(req.Temperature)
	}
	if len(req.Tools) > 0 {
		for _, spec := range req.Tools {
			out.Tools = append(out.Tools, go_openai.Tool{
				Type: go_openai.ToolTypeFunction,
				Function: go_openai.FunctionDefinition{
					Name:        spec.Name,
					Description: spec.Description,
					Parameters:  spec.Parameters,
				},
			})
		}
		out.ToolChoice = "auto"
	}
	return out
}

// BuildChatMessages maps transcript blocks onto chat messages. A tool_call
// block attaches to the preceding assistant message so that tool results
// can reference it, matching the provider's adjacency requirements.
func BuildChatMessages(blocks []transcript.Block) []go_openai.ChatCompletionMessage {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case transcript.BlockKindSystem:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleSystem,
				Content: b.Text(),
			})
		case transcript.BlockKindUser:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: b.Text(),
			})
		case transcript.BlockKindLLMText:
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: b.Text(),
			})
		case transcript.BlockKindToolCall:
			name, _ := b.Payload[transcript.PayloadKeyName].(string)
			args, _ := b.Payload[transcript.PayloadKeyArgs].(string)
			tc := go_openai.ToolCall{
				ID:   b.ID,
				Type: go_openai.ToolTypeFunction,
				Function: go_openai.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			}
			if n := len(msgs); n > 0 && msgs[n-1].Role == go_openai.ChatMessageRoleAssistant && msgs[n-1].ToolCallID == "" {
				msgs[n-1].ToolCalls = append(msgs[n-1].ToolCalls, tc)
			} else {
				msgs = append(msgs, go_openai.ChatCompletionMessage{
					Role:      go_openai.ChatMessageRoleAssistant,
					ToolCalls: []go_openai.ToolCall{tc},
				})
			}
		case transcript.BlockKindToolUse:
			result, _ := b.Payload[transcript.PayloadKeyResult].(string)
			msgs = append(msgs, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				ToolCallID: b.ID,
				Content:    result,
			})
		}
	}
	return msgs
}

func assistantTurnFromMessage(m go_openai.ChatCompletionMessage) *engine.AssistantTurn {
	out := &engine.AssistantTurn{Content: m.Content}
	if len(m.ToolCalls) == 0 {
		return out
	}
	if len(m.ToolCalls) > 1 {
		log.Warn().Int("num_tool_calls", len(m.ToolCalls)).
			Msg("openai: model issued multiple tool calls, keeping the first")
	}
	tc := m.ToolCalls[0]
	args := tc.Function.Arguments
	if args == "" {
		args = "{}"
	}
	out.ToolRequest = &engine.ToolRequest{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: json.RawMessage(args),
	}
	return out
}
