package eval

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestBatchRunnerAnswersAndAppendsColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeCSV(t, in, [][]string{
		{"id", "question"},
		{"1", "first question"},
		{"2", "second question"},
	})

	runner := NewBatchRunner(BatchConfig{InputPath: in, OutputPath: out}, func(_ context.Context, q string) (string, error) {
		return "answer to " + q, nil
	})
	require.NoError(t, runner.Run(context.Background()))

	records := readCSV(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "question", "model_response_agent_v1"}, records[0])
	assert.Equal(t, "answer to first question", records[1][2])
	assert.Equal(t, "answer to second question", records[2][2])
}

func TestBatchRunnerSkipsAnsweredRows(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeCSV(t, in, [][]string{
		{"question", "model_response_agent_v1"},
		{"done already", "cached answer"},
		{"needs work", ""},
	})

	var asked []string
	runner := NewBatchRunner(BatchConfig{InputPath: in, OutputPath: out}, func(_ context.Context, q string) (string, error) {
		asked = append(asked, q)
		return "fresh", nil
	})
	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, []string{"needs work"}, asked)
	records := readCSV(t, out)
	assert.Equal(t, "cached answer", records[1][1])
	assert.Equal(t, "fresh", records[2][1])
}

func TestBatchRunnerRecordsErrorsAndPanics(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeCSV(t, in, [][]string{
		{"question"},
		{"fails"},
		{"panics"},
		{"works"},
	})

	runner := NewBatchRunner(BatchConfig{InputPath: in, OutputPath: out}, func(_ context.Context, q string) (string, error) {
		switch q {
		case "fails":
			return "", errors.New("rate limited")
		case "panics":
			panic("nil map write")
		}
		return "ok", nil
	})
	require.NoError(t, runner.Run(context.Background()))

	records := readCSV(t, out)
	assert.Equal(t, "[ERROR] rate limited", records[1][1])
	assert.Contains(t, records[2][1], "[ERROR] panic: nil map write")
	assert.Equal(t, "ok", records[3][1])
}

func TestBatchRunnerWritesCheckpoints(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeCSV(t, in, [][]string{
		{"question"},
		{"q1"},
		{"q2"},
		{"q3"},
	})

	runner := NewBatchRunner(BatchConfig{InputPath: in, OutputPath: out, CheckpointEvery: 2}, func(_ context.Context, q string) (string, error) {
		return "a", nil
	})
	require.NoError(t, runner.Run(context.Background()))

	_, err := os.Stat(out + ".tmp")
	assert.NoError(t, err)
}

func TestBatchRunnerMissingQuestionColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	writeCSV(t, in, [][]string{{"prompt"}, {"hello"}})

	runner := NewBatchRunner(BatchConfig{InputPath: in, OutputPath: filepath.Join(dir, "out.csv")}, func(_ context.Context, q string) (string, error) {
		return "", nil
	})
	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no "question" column`)
}
