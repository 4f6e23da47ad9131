package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/freshloop/pkg/eval"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer every question of a CSV and write the results back",
	Long: `batch reads a CSV with a question column, runs the agent on each
unanswered row, and writes the answers into a result column. Rows that
already carry an answer are skipped, so an interrupted batch resumes
from its own output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := preflight(); err != nil {
			return err
		}

		cfg := agentConfigFromViper()
		a, _, err := buildAgent(cfg, false)
		if err != nil {
			return err
		}

		runner := eval.NewBatchRunner(eval.BatchConfig{
			InputPath:       viper.GetString("input"),
			OutputPath:      viper.GetString("output"),
			QuestionColumn:  viper.GetString("question-column"),
			ResultColumn:    viper.GetString("result-column"),
			CheckpointEvery: viper.GetInt("checkpoint-every"),
			Concurrency:     viper.GetInt("concurrency"),
		}, func(ctx context.Context, question string) (string, error) {
			return a.Run(ctx, question)
		})
		return runner.Run(cmd.Context())
	},
}

func init() {
	f := batchCmd.Flags()
	f.String("input", "", "input CSV path (required)")
	f.String("output", "", "output CSV path (required)")
	f.String("question-column", "question", "header of the question column")
	f.String("result-column", "model_response_agent_v1", "header of the result column")
	f.Int("checkpoint-every", 20, "write a checkpoint after this many answers")
	f.Int("concurrency", 1, "number of questions answered in parallel")
	_ = batchCmd.MarkFlagRequired("input")
	_ = batchCmd.MarkFlagRequired("output")
	_ = viper.BindPFlags(f)
	rootCmd.AddCommand(batchCmd)
}

// preflight fails fast on missing credentials instead of surfacing them
// mid-batch.
func preflight() error {
	var missing []string
	if os.Getenv("OPENAI_API_KEY") == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	provider := viper.GetString("provider")
	switch provider {
	case "serpapi":
		if os.Getenv("SERPAPI_API_KEY") == "" {
			missing = append(missing, "SERPAPI_API_KEY")
		}
	default:
		if os.Getenv("SERPER_API_KEY") == "" {
			missing = append(missing, "SERPER_API_KEY")
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}
