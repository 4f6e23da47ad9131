package evidence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-go-golems/freshloop/pkg/search"
)

// Budget caps how many entries each result category contributes and how
// many survive the final truncation.
type Budget struct {
	Organic  int
	Related  int
	QnA      int
	Evidence int
}

// DefaultBudget mirrors the gpt-4 family defaults.
var DefaultBudget = Budget{Organic: 15, Related: 3, QnA: 3, Evidence: 15}

const answerSuffix = "\n\nReasoning: <agent to fill>\nAnswer: <agent to fill>"

// MergeEntries normalizes every result category of a search response into
// one flat entry list: organic results, related questions, Q&A, knowledge
// panel, answer box. Each category is appended in reverse rank order so
// that among equal dates the better-ranked result sorts later and
// survives the tail truncation. Empty entries are dropped.
func MergeEntries(resp *search.Response, budget Budget, now time.Time) []Entry {
	var entries []Entry
	addReversed := func(batch []Entry) {
		for i := len(batch) - 1; i >= 0; i-- {
			if !batch[i].IsEmpty() {
				entries = append(entries, batch[i])
			}
		}
	}

	if resp != nil {
		var organic []Entry
		for k := 0; k < budget.Organic && k < len(resp.Organic); k++ {
			organic = append(organic, FormatSearchResult(resp.Organic[k], now))
		}
		addReversed(organic)

		var related []Entry
		for k := 0; k < budget.Related && k < len(resp.RelatedQuestions); k++ {
			related = append(related, FormatSearchResult(resp.RelatedQuestions[k], now, WithTitleField("question")))
		}
		addReversed(related)

		var qna []Entry
		for k := 0; k < budget.QnA && k < len(resp.QnA); k++ {
			qna = append(qna, FormatQnA(resp.QnA[k]))
		}
		addReversed(qna)

		addReversed([]Entry{FormatKnowledgeGraph(resp.KnowledgeGraph)})
		addReversed([]Entry{FormatSearchResult(resp.AnswerBox, now, WithHighlightField("answer"))})
	}
	return entries
}

// SortEntries orders entries by date ascending with undated entries first.
// The sort is stable so entries with equal dates keep their merge order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, oki := parseNormalizedDate(entries[i].Date)
		tj, okj := parseNormalizedDate(entries[j].Date)
		if !oki && !okj {
			return false
		}
		if !oki {
			return true
		}
		if !okj {
			return false
		}
		return ti.Before(tj)
	})
}

func parseNormalizedDate(d string) (time.Time, bool) {
	if d == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, d)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Truncate keeps the last n entries (the most recent ones after sorting).
func Truncate(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// BuildPrompt assembles the prompt-ready evidence text for a question:
// the query header, the sorted and truncated evidence entries, and the
// trailing reasoning scaffold.
func BuildPrompt(question string, resp *search.Response, budget Budget, now time.Time) string {
	entries := MergeEntries(resp, budget, now)
	SortEntries(entries)
	entries = Truncate(entries, budget.Evidence)

	var sb strings.Builder
	sb.WriteString("\n\n\nquery: " + question)
	for _, e := range entries {
		sb.WriteString("\n\n")
		sb.WriteString("source: " + orNone(e.Source) + "\n")
		sb.WriteString("date: " + orNone(e.Date) + "\n")
		sb.WriteString("title: " + orNone(e.Title) + "\n")
		sb.WriteString("snippet: " + orNone(e.Snippet) + "\n")
		sb.WriteString("highlight: " + orNone(e.Highlight))
	}
	sb.WriteString("\n\nquestion: " + question + answerSuffix)
	return sb.String()
}

const provenanceInstruction = "Instructions: Base your next reasoning ONLY on the above evidence. " +
	"If the evidence looks stale for a time-varying query, either search again or say Uncertain."

const rawProvenanceInstruction = "Use ONLY the above evidence to continue; if it is inadequate or stale, " +
	"search again or mark the result as Uncertain."

// RenderBlock builds the system-turn text that injects a tool result back
// into the conversation. Payloads carrying a pre-rendered prompt become an
// EVIDENCE BLOCK; anything else is dumped as raw JSON. The provenance
// instruction is restated identically after every tool call.
func RenderBlock(toolName string, payload map[string]any) string {
	if prompt, ok := payload["prompt"].(string); ok && prompt != "" {
		return fmt.Sprintf("EVIDENCE BLOCK (from %s):\n%s\n\n%s", toolName, prompt, provenanceInstruction)
	}
	fallback, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fallback = []byte(fmt.Sprintf("%v", payload))
	}
	return fmt.Sprintf("EVIDENCE (raw, from %s):\n%s\n\n%s", toolName, string(fallback), rawProvenanceInstruction)
}
