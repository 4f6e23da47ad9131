package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectAnswerLine(t *testing.T) {
	text := "- Premise: True\n- Verdict: Yes\n- Direct Answer: Paris.\n- Key Facts: ..."
	assert.Equal(t, "Paris.", DirectAnswer(text))
}

func TestDirectAnswerBulletVariants(t *testing.T) {
	assert.Equal(t, "42", DirectAnswer("• Direct Answer: 42"))
	assert.Equal(t, "it depends", DirectAnswer("> direct answer - it depends"))
}

func TestDirectAnswerEmptyValueTakesNextLine(t *testing.T) {
	text := "Direct Answer:\nThe capital is Paris.\nKey Facts: none"
	assert.Equal(t, "The capital is Paris.", DirectAnswer(text))
}

func TestFinalAnswerHeaderFallback(t *testing.T) {
	text := "Final Answer:\n\nThe answer is 55 years.\nmore detail"
	assert.Equal(t, "The answer is 55 years.", DirectAnswer(text))
}

func TestVerdictFallback(t *testing.T) {
	text := "Premise: unclear\nVerdict: Uncertain\nsome trailing text"
	assert.Equal(t, "Uncertain", DirectAnswer(text))
}

func TestFirstNonEmptyLineFallback(t *testing.T) {
	text := "\n\n  The model just rambled here.  \nsecond line"
	assert.Equal(t, "The model just rambled here.", DirectAnswer(text))
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, "", DirectAnswer(""))
	assert.Equal(t, "", DirectAnswer("   \n  "))
}
