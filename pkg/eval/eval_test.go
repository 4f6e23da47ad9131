package eval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/freshloop/pkg/inference/engine"
)

func TestBuildRelaxedPrompt(t *testing.T) {
	p := BuildRelaxedPrompt([]string{"117 years old", " 117 ", ""}, "  the answer is 117  ", true)
	assert.Contains(t, p, RelaxedInstruction)
	assert.Contains(t, p, "--- DEMONSTRATIONS ---")
	assert.Contains(t, p, "correct answer(s): 117 years old | 117")
	assert.Contains(t, p, "response: the answer is 117")
	assert.True(t, strings.HasSuffix(p, "evaluation: <correct|incorrect>"))

	noDemos := BuildRelaxedPrompt([]string{"x"}, "y", false)
	assert.NotContains(t, noDemos, "--- DEMONSTRATIONS ---")
}

func TestParseRelaxedLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{"evaluation: correct", LabelCorrect},
		{"Evaluation: Incorrect", LabelIncorrect},
		{"some reasoning\nevaluation: correct because...", LabelCorrect},
		{"the answer is correct", LabelCorrect},
		{"the answer is incorrect", LabelIncorrect},
		{"no verdict here", LabelUnknown},
		{"", LabelUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseRelaxedLabel(tc.in), "input: %q", tc.in)
	}
}

type cannedEngine struct {
	content string
	last    engine.CompletionRequest
}

func (c *cannedEngine) Complete(_ context.Context, req engine.CompletionRequest) (*engine.AssistantTurn, error) {
	c.last = req
	return &engine.AssistantTurn{Content: c.content}, nil
}

func TestRelaxedGraderGrade(t *testing.T) {
	eng := &cannedEngine{content: "comment: fine\nevaluation: correct"}
	g := NewRelaxedGrader(eng, WithGraderModel("gpt-4o-mini"))

	res, err := g.Grade(context.Background(), []string{"Paris"}, "The capital is Paris.")
	require.NoError(t, err)
	assert.Equal(t, LabelCorrect, res.Label)
	assert.Equal(t, "gpt-4o-mini", eng.last.Model)
	require.Len(t, eng.last.Blocks, 1)
	assert.Contains(t, eng.last.Blocks[0].Text(), "correct answer(s): Paris")
}

func TestEvalRobustDirectAnswerAligns(t *testing.T) {
	response := "- Premise: True\n- Verdict: Yes\n- Direct Answer: The capital of France is Paris.\n- Key Facts: ..."
	res := EvalRobust("capital?", response, []string{"Paris"})
	assert.Equal(t, LabelCorrect, res.Label)
	assert.Equal(t, "direct answer aligns", res.Reason)
	assert.Equal(t, "The capital of France is Paris.", res.Contract.Direct)
}

func TestEvalRobustDirectAnswerMismatch(t *testing.T) {
	response := "Direct Answer: The capital of France is Lyon."
	res := EvalRobust("capital?", response, []string{"Paris"})
	assert.Equal(t, LabelIncorrect, res.Label)
	assert.Equal(t, "direct answer does not align", res.Reason)
}

func TestEvalRobustInvalidHeaderFields(t *testing.T) {
	res := EvalRobust("q", "Premise: Maybe\nVerdict: Yes\nDirect Answer: x", []string{"x"})
	assert.Equal(t, LabelIncorrect, res.Label)
	assert.Equal(t, "invalid premise field", res.Reason)

	res = EvalRobust("q", "Premise: True\nVerdict: Perhaps\nDirect Answer: x", []string{"x"})
	assert.Equal(t, LabelIncorrect, res.Label)
	assert.Equal(t, "invalid verdict field", res.Reason)
}

func TestEvalRobustBooleanAlignment(t *testing.T) {
	res := EvalRobust("did it happen?", "Direct Answer: Yes", []string{"YES"})
	assert.Equal(t, LabelCorrect, res.Label)
}

func TestEvalRobustPolarityContradiction(t *testing.T) {
	response := "Direct Answer: yes\nBut also no , depending on the source."
	res := EvalRobust("q", response, []string{"yes"})
	assert.Equal(t, LabelIncorrect, res.Label)
	assert.Equal(t, "polarity contradiction", res.Reason)
}

func TestEvalRobustInferenceFallback(t *testing.T) {
	res := EvalRobust("q", "After checking, Maria Branyas Morera is the oldest.", []string{"Maria Branyas Morera"})
	assert.Equal(t, LabelCorrect, res.Label)
	assert.Equal(t, "answer inferable from response", res.Reason)
}

func TestEvalRobustUnknown(t *testing.T) {
	res := EvalRobust("q", "I could not determine anything useful.", []string{"Paris"})
	assert.Equal(t, LabelUnknown, res.Label)
}

func TestEvalRobustContractAfterFinalAnswerMarker(t *testing.T) {
	response := "reasoning...\nFinal Answer:\nPremise: True\nVerdict: No\nDirect Answer: It never happened."
	res := EvalRobust("q", response, []string{"never happened"})
	assert.Equal(t, LabelCorrect, res.Label)
	assert.Equal(t, "It never happened.", res.Contract.Direct)
}
