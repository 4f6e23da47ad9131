package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AnswerFunc produces the model's answer for one question.
type AnswerFunc func(ctx context.Context, question string) (string, error)

// BatchConfig controls a batch run over a question CSV.
type BatchConfig struct {
	InputPath  string
	OutputPath string
	// QuestionColumn is the header of the question column. Defaults to
	// "question".
	QuestionColumn string
	// ResultColumn receives the answers; appended to the header when
	// missing. Defaults to "model_response_agent_v1".
	ResultColumn string
	// CheckpointEvery writes OutputPath+".tmp" after that many answered
	// questions. Defaults to 20.
	CheckpointEvery int
	// Concurrency bounds parallel agent runs. Defaults to 1.
	Concurrency int
}

func (c *BatchConfig) applyDefaults() {
	if c.QuestionColumn == "" {
		c.QuestionColumn = "question"
	}
	if c.ResultColumn == "" {
		c.ResultColumn = "model_response_agent_v1"
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
}

// batchTable is a CSV held in memory during a batch run.
type batchTable struct {
	header []string
	rows   [][]string

	questionIdx int
	resultIdx   int
}

func loadBatchTable(path, questionColumn, resultColumn string) (*batchTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input CSV")
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading input CSV")
	}
	if len(records) == 0 {
		return nil, errors.New("input CSV is empty")
	}

	t := &batchTable{header: records[0], rows: records[1:], questionIdx: -1, resultIdx: -1}
	for i, col := range t.header {
		switch col {
		case questionColumn:
			t.questionIdx = i
		case resultColumn:
			t.resultIdx = i
		}
	}
	if t.questionIdx < 0 {
		return nil, errors.Errorf("input CSV has no %q column", questionColumn)
	}
	if t.resultIdx < 0 {
		t.resultIdx = len(t.header)
		t.header = append(t.header, resultColumn)
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], "")
		}
	}
	return t, nil
}

func (t *batchTable) write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output CSV")
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.header); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing header")
	}
	if err := w.WriteAll(t.rows); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing rows")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "flushing output CSV")
	}
	return f.Close()
}

// BatchRunner answers every unanswered question of a CSV and writes the
// results back, checkpointing along the way. Rows that already carry an
// answer are skipped, so an interrupted run can resume from its own
// output.
type BatchRunner struct {
	cfg    BatchConfig
	answer AnswerFunc
}

func NewBatchRunner(cfg BatchConfig, answer AnswerFunc) *BatchRunner {
	cfg.applyDefaults()
	return &BatchRunner{cfg: cfg, answer: answer}
}

// Run processes the batch. A failing question never aborts the batch;
// its cell records an error sentinel instead.
func (r *BatchRunner) Run(ctx context.Context) error {
	table, err := loadBatchTable(r.cfg.InputPath, r.cfg.QuestionColumn, r.cfg.ResultColumn)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	processed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i := range table.rows {
		row := table.rows[i]
		if table.questionIdx >= len(row) {
			continue
		}
		if row[table.resultIdx] != "" {
			continue
		}
		question := row[table.questionIdx]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			answer := r.answerOne(gctx, question)

			mu.Lock()
			row[table.resultIdx] = answer
			processed++
			checkpoint := processed%r.cfg.CheckpointEvery == 0
			if checkpoint {
				if err := table.write(r.cfg.OutputPath + ".tmp"); err != nil {
					log.Warn().Err(err).Msg("checkpoint write failed")
				} else {
					log.Info().Int("processed", processed).Msg("wrote checkpoint")
				}
			}
			mu.Unlock()

			log.Info().Str("question", truncate(question, 60)).Str("answer", truncate(answer, 80)).Msg("answered")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Flush what we have before reporting the interruption.
		if werr := table.write(r.cfg.OutputPath); werr != nil {
			log.Error().Err(werr).Msg("failed to write partial results")
		}
		return err
	}
	return table.write(r.cfg.OutputPath)
}

// answerOne shields the batch from a single question's failure: errors
// and panics both become error sentinels in the result cell.
func (r *BatchRunner) answerOne(ctx context.Context, question string) (answer string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("question", question).Msg("agent run panicked")
			answer = fmt.Sprintf("[ERROR] panic: %v", rec)
		}
	}()
	out, err := r.answer(ctx, question)
	if err != nil {
		return fmt.Sprintf("[ERROR] %s", err.Error())
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
