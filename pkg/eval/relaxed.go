package eval

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/freshloop/pkg/inference/engine"
	"github.com/go-go-golems/freshloop/pkg/transcript"
)

// Label is a grading verdict.
type Label string

const (
	LabelCorrect   Label = "correct"
	LabelIncorrect Label = "incorrect"
	LabelUnknown   Label = "unknown"
)

// RelaxedInstruction describes the relaxed grading regime to the grader
// model: hallucinations and staleness are tolerated as long as the
// primary answer stands on its own.
const RelaxedInstruction = "Please evaluate the response to a question under relaxed evaluation, where " +
	"hallucinations, outdated information, and ill-formed answers are allowed, " +
	"as long as the primary answer is accurate. Please credit the response " +
	"only if it provides a confident and definitive answer, or the correct " +
	"answer can be obviously inferred from the response. The primary or final " +
	"answer when standing alone must be accurate. Any additional information " +
	"that is provided must not contradict the primary answer or reshape one's " +
	"perception of it. For false-premise questions, the response must point " +
	"out the presence of a false premise to receive credit. For answers that " +
	"involve names of entities (e.g., people), complete names or commonly " +
	"recognized names are expected. Regarding numerical answers, approximate " +
	"numbers are generally not accepted unless explicitly included in the " +
	"ground-truth answers. We accept ill-formed responses (including those in " +
	"a non-English language), as well as hallucinated or outdated information " +
	"that does not significantly impact the primary answer."

type relaxedDemo struct {
	correct    string
	response   string
	comment    string
	evaluation string
}

var relaxedDemos = []relaxedDemo{
	{
		correct:    "correct answer(s): 117 years old | 117",
		response:   "response: As of today <DATE>, the most up-to-date and relevant information regarding this query is as follows. The oldest verified living person is Maria Branyas Morera, who was born on March 4, 1907, making her 117 years old.",
		comment:    "comment: The primary answer (117 years old) is accurate; information is up-to-date. Credit.",
		evaluation: "evaluation: correct",
	},
	{
		correct:    "correct answer(s): The United Kingdom has never adopted the Euro.",
		response:   "response: The UK has never adopted the Euro as its official currency. The country has retained the British pound sterling (GBP).",
		comment:    "comment: False premise; response debunks it explicitly. Credit.",
		evaluation: "evaluation: correct",
	},
	{
		correct:    "correct answer(s): She was released in December 2022 as part of a prisoner swap.",
		response:   "response: I'm sorry, but I have no information to suggest that Brittney Griner is currently in a Russian prison...",
		comment:    "comment: False premise not debunked explicitly; lacks a confident, definitive answer. Do not credit.",
		evaluation: "evaluation: incorrect",
	},
	{
		correct:    "correct answer(s): English",
		response:   "response: 1. Mandarin 2. Spanish 3. English",
		comment:    "comment: Correct answer can be obviously inferred. Credit.",
		evaluation: "evaluation: correct",
	},
	{
		correct:    "correct answer(s): No",
		response:   "response: No, it isn't. The stock price is currently at $257.",
		comment:    "comment: Additional information contradicts the primary answer (257 > 250). Do not credit.",
		evaluation: "evaluation: incorrect",
	},
}

func formatDemoBlock() string {
	lines := []string{RelaxedInstruction, "\n--- DEMONSTRATIONS ---"}
	for _, d := range relaxedDemos {
		lines = append(lines, d.correct, d.response, d.comment, d.evaluation, "")
	}
	lines = append(lines, "--- END DEMOS ---")
	return strings.Join(lines, "\n")
}

// BuildRelaxedPrompt assembles the grader prompt: instruction, optional
// demonstrations, then the case under evaluation.
func BuildRelaxedPrompt(correctAnswers []string, response string, useDemos bool) string {
	kept := make([]string, 0, len(correctAnswers))
	for _, a := range correctAnswers {
		if s := strings.TrimSpace(a); s != "" {
			kept = append(kept, s)
		}
	}

	parts := []string{RelaxedInstruction}
	if useDemos {
		parts = []string{formatDemoBlock()}
	}
	parts = append(parts,
		"\nNow evaluate the following response:",
		"correct answer(s): "+strings.Join(kept, " | "),
		"response: "+strings.TrimSpace(response),
		"\nPlease output exactly one line:\nevaluation: <correct|incorrect>",
	)
	return strings.Join(parts, "\n")
}

// ParseRelaxedLabel reads the grader's verdict line. A tolerant fallback
// accepts bare "correct"/"incorrect" anywhere in the output.
func ParseRelaxedLabel(text string) Label {
	t := strings.ToLower(text)
	if _, tail, found := strings.Cut(t, "evaluation:"); found {
		tail = strings.TrimSpace(tail)
		if strings.HasPrefix(tail, "correct") {
			return LabelCorrect
		}
		if strings.HasPrefix(tail, "incorrect") {
			return LabelIncorrect
		}
	}
	hasCorrect := strings.Contains(t, "correct")
	hasIncorrect := strings.Contains(t, "incorrect")
	if hasCorrect && !hasIncorrect {
		return LabelCorrect
	}
	if hasIncorrect {
		// "incorrect" contains "correct", so both flags set means only
		// "incorrect" actually appeared on its own
		if !strings.Contains(strings.ReplaceAll(t, "incorrect", ""), "correct") {
			return LabelIncorrect
		}
	}
	return LabelUnknown
}

// RelaxedGrader grades responses with an LLM under the relaxed regime.
type RelaxedGrader struct {
	engine      engine.Engine
	model       string
	temperature float64
	maxTokens   int
	useDemos    bool
}

type RelaxedGraderOption func(*RelaxedGrader)

func WithGraderModel(model string) RelaxedGraderOption {
	return func(g *RelaxedGrader) { g.model = model }
}

func WithoutDemos() RelaxedGraderOption {
	return func(g *RelaxedGrader) { g.useDemos = false }
}

func NewRelaxedGrader(eng engine.Engine, opts ...RelaxedGraderOption) *RelaxedGrader {
	g := &RelaxedGrader{
		engine:    eng,
		model:     "gpt-4o",
		maxTokens: 128,
		useDemos:  true,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// RelaxedResult is the grader's parsed verdict plus its raw output.
type RelaxedResult struct {
	Label Label
	Raw   string
}

// Grade runs the relaxed evaluation for one response.
func (g *RelaxedGrader) Grade(ctx context.Context, correctAnswers []string, response string) (*RelaxedResult, error) {
	prompt := BuildRelaxedPrompt(correctAnswers, response, g.useDemos)
	turn, err := g.engine.Complete(ctx, engine.CompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Blocks:      []transcript.Block{transcript.NewUserTextBlock(prompt)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "grading response")
	}
	return &RelaxedResult{Label: ParseRelaxedLabel(turn.Content), Raw: turn.Content}, nil
}
