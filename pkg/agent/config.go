package agent

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/freshloop/pkg/evidence"
)

// Config controls one agent's behavior across runs.
type Config struct {
	Model       string
	Provider    string
	MaxRounds   int
	Temperature float64
	Timezone    string
	Debug       bool
}

// DefaultConfig returns the standard agent configuration.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o",
		Provider:    "serper",
		MaxRounds:   8,
		Temperature: 0,
		Timezone:    "America/Chicago",
	}
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must be set")
	}
	if c.MaxRounds < 1 {
		return errors.Errorf("max rounds must be at least 1, got %d", c.MaxRounds)
	}
	return nil
}

// Hyperparams are the per-model-family retrieval and token budgets.
type Hyperparams struct {
	Organic        int
	Related        int
	QnA            int
	Evidence       int
	MaxTokens      int
	MaxTokensFinal int
}

// EvidenceBudget converts the retrieval counts into an evidence budget.
func (h Hyperparams) EvidenceBudget() evidence.Budget {
	return evidence.Budget{
		Organic:  h.Organic,
		Related:  h.Related,
		QnA:      h.QnA,
		Evidence: h.Evidence,
	}
}

// HyperparamsForModel returns the budgets for a model family. The gpt-4
// family gets wider retrieval; everything else runs with tighter evidence
// limits.
func HyperparamsForModel(model string) Hyperparams {
	if strings.HasPrefix(model, "gpt-4") {
		return Hyperparams{
			Organic:        15,
			Related:        3,
			QnA:            3,
			Evidence:       15,
			MaxTokens:      256,
			MaxTokensFinal: 512,
		}
	}
	return Hyperparams{
		Organic:        15,
		Related:        2,
		QnA:            2,
		Evidence:       5,
		MaxTokens:      256,
		MaxTokensFinal: 512,
	}
}
