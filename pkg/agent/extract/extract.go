// Package extract pulls the concise direct answer out of a final
// assistant text. The answer contract is best effort: models sometimes
// omit headers, so extraction runs a prioritized chain of strategies and
// the first hit wins.
package extract

import (
	"regexp"
	"strings"
)

// Strategy is one extraction attempt. It returns the extracted answer and
// whether it matched.
type Strategy struct {
	Name    string
	Extract func(text string) (string, bool)
}

var (
	directAnswerRe = regexp.MustCompile(`(?im)^[\s\-•>*]*Direct\s*Answer\s*[:\-–]\s*(.*)$`)
	finalAnswerRe  = regexp.MustCompile(`(?im)^[\s\-•>*]*Final\s*Answer\s*[:\-–]?(.*)$`)
	verdictRe      = regexp.MustCompile(`(?im)^[\s\-•>*]*Verdict\s*[:\-–]\s*(.+)$`)
)

// DefaultStrategies returns the extraction chain in priority order:
// the Direct Answer line, the text after a Final Answer header, the
// Verdict line, then the first non-empty line.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "direct-answer-line", Extract: directAnswerLine},
		{Name: "after-final-answer-header", Extract: afterFinalAnswerHeader},
		{Name: "verdict-line", Extract: verdictLine},
		{Name: "first-non-empty-line", Extract: firstNonEmptyLine},
	}
}

// DirectAnswer runs the default chain over the text. Empty input yields
// "".
func DirectAnswer(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	for _, s := range DefaultStrategies() {
		if answer, ok := s.Extract(t); ok {
			return answer
		}
	}
	return t
}

func directAnswerLine(t string) (string, bool) {
	loc := directAnswerRe.FindStringSubmatchIndex(t)
	if loc == nil {
		return "", false
	}
	val := strings.TrimSpace(t[loc[2]:loc[3]])
	if val != "" {
		return val, true
	}
	// header matched but the line itself is empty; take the next
	// non-empty line
	if next, ok := firstNonEmptyLine(t[loc[1]:]); ok {
		return next, true
	}
	return "", true
}

func afterFinalAnswerHeader(t string) (string, bool) {
	loc := finalAnswerRe.FindStringIndex(t)
	if loc == nil {
		return "", false
	}
	return firstNonEmptyLine(t[loc[1]:])
}

func verdictLine(t string) (string, bool) {
	m := verdictRe.FindStringSubmatch(t)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func firstNonEmptyLine(t string) (string, bool) {
	for _, line := range strings.Split(t, "\n") {
		if ls := strings.TrimSpace(line); ls != "" {
			return ls, true
		}
	}
	return "", false
}
