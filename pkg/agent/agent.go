package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/freshloop/pkg/agent/extract"
	"github.com/go-go-golems/freshloop/pkg/events"
	"github.com/go-go-golems/freshloop/pkg/evidence"
	"github.com/go-go-golems/freshloop/pkg/inference/engine"
	"github.com/go-go-golems/freshloop/pkg/tools"
	"github.com/go-go-golems/freshloop/pkg/transcript"
)

// evidenceMarker tags system turns carrying tool evidence so the final
// synthesis context can aggregate them.
const evidenceMarker = "EVIDENCE"

// Agent drives a multi-round reasoning loop over an inference engine:
// at most one tool call per round, forced reflection after evidence, and
// a tool-free synthesis round when the budget runs out.
type Agent struct {
	cfg      Config
	hp       Hyperparams
	engine   engine.Engine
	registry *tools.Registry
	sink     events.Sink
	now      func() time.Time
}

type Option func(*Agent)

// WithSink routes run events to the given sink.
func WithSink(sink events.Sink) Option {
	return func(a *Agent) { a.sink = sink }
}

// WithClock fixes the reference time, for reproducible runs and tests.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithHyperparams overrides the per-model-family budgets.
func WithHyperparams(hp Hyperparams) Option {
	return func(a *Agent) { a.hp = hp }
}

// New builds an agent. The registry may be nil, in which case the model
// never sees tools and must answer from its own knowledge.
func New(cfg Config, eng engine.Engine, registry *tools.Registry, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid agent config")
	}
	if eng == nil {
		return nil, errors.New("engine must not be nil")
	}
	a := &Agent{
		cfg:      cfg,
		hp:       HyperparamsForModel(cfg.Model),
		engine:   eng,
		registry: registry,
		sink:     events.NullSink{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Result carries everything a finished run produced.
type Result struct {
	Full       string
	Direct     string
	Outcome    Outcome
	Steps      int
	Transcript *transcript.Transcript
}

// Run executes the loop for a question and returns the final answer text.
func (a *Agent) Run(ctx context.Context, question string) (string, error) {
	res, err := a.RunParts(ctx, question)
	if err != nil {
		return "", err
	}
	return res.Full, nil
}

// RunParts executes the loop and returns the full answer text plus the
// extracted direct answer.
func (a *Agent) RunParts(ctx context.Context, question string) (*Result, error) {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("model", a.cfg.Model).Logger()

	t := transcript.NewTranscriptBuilder().
		WithSystemPrompt(a.buildSystemPrompt()).
		WithUserPrompt(question).
		Build()

	var specs []engine.ToolSpec
	if a.registry != nil {
		specs = a.registry.Specs()
	}

	a.debugTrace(t, "INIT")

	for step := 1; step <= a.cfg.MaxRounds; step++ {
		stepsLeft := a.cfg.MaxRounds - step + 1
		finalRound := stepsLeft == 1
		logger.Debug().Int("step", step).Int("steps_left", stepsLeft).Msg("starting round")
		events.SafePublish(a.sink, events.NewRoundStarted(runID, step, stepsLeft, finalRound))

		// Focus reminder, only in middle rounds and only once there is a
		// reflection to summarize.
		if step > 1 && stepsLeft > 1 {
			if reflection := transcript.LastAssistantText(t); reflection != "" {
				transcript.AppendBlock(t, transcript.NewSystemTextBlock(BuildFocusSnapshot(question, reflection)))
				events.SafePublish(a.sink, events.NewSnapshotInjected(runID, step))
				a.debugTrace(t, "SNAPSHOT ADDED")
			}
		}

		// Last round: synthesis context in, tools out.
		useTools := specs
		maxTokens := a.hp.MaxTokens
		if finalRound {
			useTools = nil
			maxTokens = a.hp.MaxTokensFinal
			evidences := transcript.SystemTextsContaining(t, evidenceMarker)
			transcript.AppendBlock(t, transcript.NewSystemTextBlock(FinalSynthesisContext(question, evidences)))
			a.debugTrace(t, "FINAL CONTEXT")
		}

		turn, err := a.engine.Complete(ctx, engine.CompletionRequest{
			Model:       a.cfg.Model,
			Temperature: a.cfg.Temperature,
			MaxTokens:   maxTokens,
			Blocks:      t.Blocks,
			Tools:       useTools,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "completing round %d", step)
		}

		content := strings.TrimSpace(turn.Content)
		transcript.AppendBlock(t, transcript.NewAssistantTextBlock(content))
		events.SafePublish(a.sink, events.NewAssistantReply(runID, step, content))
		a.debugTrace(t, "AFTER ASSISTANT")

		if c := ClassifyOutcome(content); c.Finalized {
			logger.Debug().Int("step", step).Msg("final answer detected")
			return a.finish(runID, question, c.Text, OutcomeFinalized, step, t), nil
		}

		if turn.ToolRequest != nil && !finalRound {
			a.handleToolRequest(ctx, runID, step, question, t, turn.ToolRequest)
			continue
		}
		// No tool and no final answer: next round.
	}

	// Budget exhausted; fall back to the last assistant text.
	full := transcript.LastAssistantText(t)
	if full == "" {
		full = StoppedSentinel
	}
	logger.Debug().Msg("round budget exhausted")
	return a.finish(runID, question, full, OutcomeExhausted, a.cfg.MaxRounds, t), nil
}

func (a *Agent) buildSystemPrompt() string {
	now := a.now()
	if a.cfg.Timezone != "" {
		if loc, err := time.LoadLocation(a.cfg.Timezone); err == nil {
			now = now.In(loc)
		}
	}
	return RenderPlanningPrompt(TodayContext(now))
}

// handleToolRequest runs the single tool call of a round and folds the
// result back into the transcript. Every failure mode lands in the
// transcript as data the model can read; nothing here aborts the run.
func (a *Agent) handleToolRequest(ctx context.Context, runID string, step int, question string, t *transcript.Transcript, req *engine.ToolRequest) {
	args := a.prepareArgs(req)
	events.SafePublish(a.sink, events.NewToolCalled(runID, step, req.Name, string(args)))

	if a.registry == nil || !a.registry.Has(req.Name) {
		available := "none"
		if a.registry != nil {
			available = a.registry.NamesList()
		}
		msg := fmt.Sprintf("Requested tool '%s' is not available. Available: %s.", req.Name, available)
		transcript.AppendBlock(t, transcript.NewSystemTextBlock(msg))
		events.SafePublish(a.sink, events.NewEvidenceAdded(runID, step, req.Name, false, "unknown tool"))
		return
	}

	payload, err := a.registry.Dispatch(ctx, req.Name, args)
	if err != nil {
		// Has() passed above, so this is an internal inconsistency; keep
		// the run alive and tell the model.
		payload = tools.Errf("tool %s failed: %s", req.Name, err.Error())
	}

	resultJSON, err := json.Marshal(payload)
	if err != nil {
		resultJSON = []byte(fmt.Sprintf(`{"ok": false, "error": %q}`, err.Error()))
	}
	transcript.AppendBlock(t, transcript.NewToolCallBlock(req.ID, req.Name, string(args)))
	transcript.AppendBlock(t, transcript.NewToolUseBlock(req.ID, string(resultJSON)))

	transcript.AppendBlock(t, transcript.NewSystemTextBlock(evidence.RenderBlock(req.Name, payload)))
	transcript.AppendBlock(t, transcript.NewSystemTextBlock(ReflectAfterTool))
	events.SafePublish(a.sink, events.NewEvidenceAdded(runID, step, req.Name, payload.IsOK(), payload.ErrorMessage()))
	a.debugTrace(t, fmt.Sprintf("TOOL '%s' RESULT + EVIDENCE", req.Name))
}

// prepareArgs normalizes the raw tool arguments and injects the
// configured search provider when the model omitted it.
func (a *Agent) prepareArgs(req *engine.ToolRequest) json.RawMessage {
	raw := req.Arguments
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if req.Name != "google" || a.cfg.Provider == "" {
		return raw
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	if _, ok := m["provider"]; !ok {
		m["provider"] = a.cfg.Provider
		if b, err := json.Marshal(m); err == nil {
			return b
		}
	}
	return raw
}

func (a *Agent) finish(runID, question, full string, outcome Outcome, steps int, t *transcript.Transcript) *Result {
	direct := extract.DirectAnswer(full)
	events.SafePublish(a.sink, events.NewFinalAnswer(runID, question, direct, string(outcome), steps))
	return &Result{
		Full:       full,
		Direct:     direct,
		Outcome:    outcome,
		Steps:      steps,
		Transcript: t,
	}
}

func (a *Agent) debugTrace(t *transcript.Transcript, title string) {
	if !a.cfg.Debug {
		return
	}
	transcript.FprintTrace(os.Stderr, t, title)
}
