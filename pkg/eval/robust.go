package eval

import (
	"regexp"
	"strings"
)

// Contract holds the parsed answer contract header fields.
type Contract struct {
	Premise string
	Verdict string
	Direct  string
}

// RobustResult is the rule-based evaluator's verdict.
type RobustResult struct {
	Label    Label
	Reason   string
	Contract Contract
}

var (
	premiseRe = regexp.MustCompile(`(?i)Premise:\s*(.+)`)
	verdictRe = regexp.MustCompile(`(?i)Verdict:\s*(.+)`)
	directRe  = regexp.MustCompile(`(?i)Direct Answer:\s*(.+)`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

func parseContract(finalText string) Contract {
	t := strings.TrimSpace(finalText)
	if _, after, found := strings.Cut(t, "Final Answer:"); found {
		t = strings.TrimSpace(after)
	}
	grab := func(re *regexp.Regexp) string {
		m := re.FindStringSubmatch(t)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
	return Contract{
		Premise: grab(premiseRe),
		Verdict: grab(verdictRe),
		Direct:  grab(directRe),
	}
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " ")))
}

func boolFromText(s string) string {
	switch norm(s) {
	case "yes":
		return "YES"
	case "no":
		return "NO"
	case "uncertain":
		return "UNCERTAIN"
	}
	return ""
}

func anyContains(hay string, needles []string) bool {
	h := norm(hay)
	for _, n := range needles {
		if strings.TrimSpace(n) == "" {
			continue
		}
		if strings.Contains(h, norm(n)) {
			return true
		}
	}
	return false
}

func directAnswerAligns(direct string, correctAnswers []string) bool {
	if direct == "" {
		return false
	}
	if anyContains(direct, correctAnswers) {
		return true
	}
	if b := boolFromText(direct); b != "" {
		for _, x := range correctAnswers {
			if boolFromText(x) == b {
				return true
			}
		}
	}
	return false
}

// hasContradictoryPolarity detects responses containing both "yes" and
// "no" as standalone words.
func hasContradictoryPolarity(text string) bool {
	t := " " + norm(text) + " "
	return strings.Contains(t, " yes ") && strings.Contains(t, " no ")
}

func validHeaderWord(field string, allowed ...string) bool {
	first := strings.ToUpper(strings.Fields(field)[0])
	for _, a := range allowed {
		if first == a {
			return true
		}
	}
	return false
}

// EvalRobust grades a response with rules alone: prefer alignment of the
// contract's Direct Answer with the ground truth, fall back to
// containment over the whole response, then to boolean matching. A
// response carrying both polarities is never credited.
func EvalRobust(question, response string, correctAnswers []string) RobustResult {
	contract := parseContract(response)

	if contract.Premise != "" && !validHeaderWord(contract.Premise, "TRUE", "FALSE", "UNCERTAIN") {
		return RobustResult{Label: LabelIncorrect, Reason: "invalid premise field", Contract: contract}
	}
	if contract.Verdict != "" && !validHeaderWord(contract.Verdict, "YES", "NO", "UNCERTAIN") {
		return RobustResult{Label: LabelIncorrect, Reason: "invalid verdict field", Contract: contract}
	}

	if strings.TrimSpace(contract.Direct) != "" {
		aligned := directAnswerAligns(contract.Direct, correctAnswers)
		switch {
		case aligned && !hasContradictoryPolarity(response):
			return RobustResult{Label: LabelCorrect, Reason: "direct answer aligns", Contract: contract}
		case aligned:
			return RobustResult{Label: LabelIncorrect, Reason: "polarity contradiction", Contract: contract}
		default:
			return RobustResult{Label: LabelIncorrect, Reason: "direct answer does not align", Contract: contract}
		}
	}

	if anyContains(response, correctAnswers) && !hasContradictoryPolarity(response) {
		return RobustResult{Label: LabelCorrect, Reason: "answer inferable from response", Contract: contract}
	}

	truthBools := map[string]bool{}
	for _, x := range correctAnswers {
		if b := boolFromText(x); b != "" {
			truthBools[b] = true
		}
	}
	if len(truthBools) > 0 {
		if found := boolFromText(response); found != "" && truthBools[found] && !hasContradictoryPolarity(response) {
			return RobustResult{Label: LabelCorrect, Reason: "boolean aligns", Contract: contract}
		}
	}

	return RobustResult{Label: LabelUnknown, Reason: "no alignment detected", Contract: contract}
}
