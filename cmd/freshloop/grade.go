package main

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/freshloop/pkg/eval"
	"github.com/go-go-golems/freshloop/pkg/inference/openai"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade answered questions against ground truth",
	Long: `grade reads a results CSV and labels every answer as correct,
incorrect, or unknown. The robust mode applies rules locally; the
relaxed-llm mode asks a grader model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := viper.GetString("mode")
		if mode != "robust" && mode != "relaxed-llm" {
			return errors.Errorf("unsupported mode %q (want robust or relaxed-llm)", mode)
		}

		records, err := readAll(viper.GetString("grade-input"))
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return errors.New("input CSV is empty")
		}

		header := records[0]
		questionIdx := indexOf(header, viper.GetString("question-column"))
		responseIdx := indexOf(header, viper.GetString("response-column"))
		correctIdx := indexOf(header, viper.GetString("correct-column"))
		if questionIdx < 0 || responseIdx < 0 || correctIdx < 0 {
			return errors.New("input CSV is missing the question, response, or correct answer column")
		}

		var grader *eval.RelaxedGrader
		if mode == "relaxed-llm" {
			eng, err := openai.NewEngine("")
			if err != nil {
				return errors.Wrap(err, "building grader engine")
			}
			grader = eval.NewRelaxedGrader(eng, eval.WithGraderModel(viper.GetString("model")))
		}

		header = append(header, "eval_label_"+mode, "eval_reason_"+mode)
		for i := 1; i < len(records); i++ {
			row := records[i]
			question := row[questionIdx]
			response := row[responseIdx]
			// Ground truth cells hold one answer or several separated
			// by " | ".
			correct := strings.Split(row[correctIdx], " | ")

			var label eval.Label
			var reason string
			if grader != nil {
				res, err := grader.Grade(cmd.Context(), correct, response)
				if err != nil {
					return errors.Wrapf(err, "grading row %d", i)
				}
				label, reason = res.Label, res.Raw
			} else {
				res := eval.EvalRobust(question, response, correct)
				label, reason = res.Label, res.Reason
			}
			records[i] = append(row, string(label), reason)
		}
		records[0] = header

		return writeAll(viper.GetString("grade-output"), records)
	},
}

func init() {
	f := gradeCmd.Flags()
	f.String("grade-input", "", "results CSV path (required)")
	f.String("grade-output", "", "graded CSV path (required)")
	f.String("mode", "robust", "grading mode (robust or relaxed-llm)")
	f.String("response-column", "model_response_agent_v1", "header of the response column")
	f.String("correct-column", "correct_answers", "header of the ground truth column")
	_ = gradeCmd.MarkFlagRequired("grade-input")
	_ = gradeCmd.MarkFlagRequired("grade-output")
	_ = viper.BindPFlags(f)
	rootCmd.AddCommand(gradeCmd)
}

func indexOf(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

func readAll(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input CSV")
	}
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading input CSV")
	}
	return records, nil
}

func writeAll(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output CSV")
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing output CSV")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
