package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+2*3", 8},
		{"(2+2)*3", 12},
		{"10/4", 2.5},
		{"10%3", 1},
		{"2**10", 1024},
		{"2**3**2", 512}, // right associative
		{"-3+5", 2},
		{"-(2+3)", -5},
		{"--4", 4},
		{" 1 + 2 ", 3},
		{"3.5*2", 7},
		{"2024-1969", 55},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"identifier", "os.system('ls')", "identifiers are not allowed"},
		{"import", "__import__('os')", "identifiers are not allowed"},
		{"function call", "max(1,2)", "identifiers are not allowed"},
		{"division by zero", "1/0", "division by zero"},
		{"modulo by zero", "1%0", "modulo by zero"},
		{"unclosed paren", "(1+2", "closing parenthesis"},
		{"trailing garbage", "1+2)", "unexpected"},
		{"empty", "", "unexpected end"},
		{"bare dot", ".", "invalid number"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Evaluate(tc.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "8", FormatNumber(8))
	assert.Equal(t, "-55", FormatNumber(-55))
	assert.Equal(t, "2.5", FormatNumber(2.5))
}

func TestCalculatorToolRun(t *testing.T) {
	def := NewCalculatorTool()
	assert.Equal(t, "calculator", def.Name)
	require.NotNil(t, def.Parameters)

	p := def.Run(context.Background(), json.RawMessage(`{"expression": "2+2*3"}`))
	require.True(t, p.IsOK())
	assert.Equal(t, "8", p["result"])
	assert.Equal(t, "2+2*3", p["expression"])
}

func TestCalculatorToolRejectsInjection(t *testing.T) {
	def := NewCalculatorTool()
	p := def.Run(context.Background(), json.RawMessage(`{"expression": "__import__('os').system('rm -rf /')"}`))
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "identifiers are not allowed")
}
