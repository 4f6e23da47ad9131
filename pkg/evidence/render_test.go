package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/freshloop/pkg/search"
)

func TestSortEntriesUndatedFirstThenAscending(t *testing.T) {
	entries := []Entry{
		{Title: "a", Date: "Jan 01, 2023"},
		{Title: "b", Date: "Mar 05, 2021"},
		{Title: "c"},
	}
	SortEntries(entries)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Title)
	assert.Equal(t, "b", entries[1].Title)
	assert.Equal(t, "a", entries[2].Title)
}

func TestSortEntriesStableOnEqualDates(t *testing.T) {
	entries := []Entry{
		{Title: "first", Date: "Jan 01, 2023"},
		{Title: "second", Date: "Jan 01, 2023"},
	}
	SortEntries(entries)
	assert.Equal(t, "first", entries[0].Title)
	assert.Equal(t, "second", entries[1].Title)
}

func TestTruncateKeepsTail(t *testing.T) {
	entries := []Entry{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	kept := Truncate(entries, 2)
	require.Len(t, kept, 2)
	assert.Equal(t, "b", kept[0].Title)
	assert.Equal(t, "c", kept[1].Title)

	assert.Len(t, Truncate(entries, 5), 3)
	assert.Len(t, Truncate(entries, 0), 3)
}

func TestBuildPromptOrderingScenario(t *testing.T) {
	resp := &search.Response{
		OK: true,
		Organic: []map[string]any{
			{"title": "newest", "snippet": "s1", "date": "Jan 1, 2023", "displayed_link": "a.com"},
			{"title": "oldest", "snippet": "s2", "date": "Mar 5, 2021", "displayed_link": "b.com"},
			{"title": "undated", "snippet": "s3", "displayed_link": "c.com"},
		},
	}
	out := BuildPrompt("when?", resp, DefaultBudget, testNow)

	iUndated := strings.Index(out, "title: undated")
	iOldest := strings.Index(out, "title: oldest")
	iNewest := strings.Index(out, "title: newest")
	require.True(t, iUndated >= 0 && iOldest >= 0 && iNewest >= 0)
	assert.Less(t, iUndated, iOldest)
	assert.Less(t, iOldest, iNewest)
}

func TestBuildPromptShape(t *testing.T) {
	resp := &search.Response{
		OK: true,
		Organic: []map[string]any{
			{"title": "only", "displayed_link": "x.org"},
		},
	}
	out := BuildPrompt("what is x?", resp, DefaultBudget, testNow)

	assert.True(t, strings.HasPrefix(out, "\n\n\nquery: what is x?"))
	assert.Contains(t, out, "source: x.org\n")
	assert.Contains(t, out, "date: None\n")
	assert.Contains(t, out, "snippet: None\n")
	assert.Contains(t, out, "highlight: None")
	assert.True(t, strings.HasSuffix(out, "question: what is x?\n\nReasoning: <agent to fill>\nAnswer: <agent to fill>"))
}

func TestBuildPromptBudgets(t *testing.T) {
	resp := &search.Response{OK: true}
	for i := 0; i < 20; i++ {
		resp.Organic = append(resp.Organic, map[string]any{
			"title":          "r" + strings.Repeat("x", i+1),
			"displayed_link": "site.com",
		})
	}
	out := BuildPrompt("q", resp, Budget{Organic: 20, Evidence: 4}, testNow)
	assert.Equal(t, 4, strings.Count(out, "source: site.com"))
}

func TestBuildPromptSkipsEmptyCategories(t *testing.T) {
	out := BuildPrompt("q", &search.Response{OK: true}, DefaultBudget, testNow)
	assert.NotContains(t, out, "source:")
	assert.Contains(t, out, "query: q")
}

func TestMergeEntriesAllCategories(t *testing.T) {
	resp := &search.Response{
		OK: true,
		Organic: []map[string]any{
			{"title": "organic", "displayed_link": "o.com"},
		},
		RelatedQuestions: []map[string]any{
			{"question": "related?", "snippet": "rel", "displayed_link": "r.com"},
		},
		QnA: []map[string]any{
			{"question": "qna?", "answer": "yes", "link": "https://q.com/a"},
		},
		KnowledgeGraph: map[string]any{"title": "KG", "type": "thing"},
		AnswerBox:      map[string]any{"title": "box", "answer": "42"},
	}
	entries := MergeEntries(resp, DefaultBudget, testNow)
	require.Len(t, entries, 5)
	assert.Equal(t, "organic", entries[0].Title)
	assert.Equal(t, "related?", entries[1].Title)
	assert.Equal(t, "qna?", entries[2].Title)
	assert.Equal(t, "yes", entries[2].Snippet)
	assert.Equal(t, "KG\n\tthing", entries[3].Title)
	assert.Equal(t, "42", entries[4].Highlight)
}

func TestRenderBlockEvidence(t *testing.T) {
	out := RenderBlock("google", map[string]any{"ok": true, "prompt": "\n\n\nquery: q"})
	assert.True(t, strings.HasPrefix(out, "EVIDENCE BLOCK (from google):"))
	assert.Contains(t, out, "query: q")
	assert.Contains(t, out, "Base your next reasoning ONLY on the above evidence")
}

func TestRenderBlockRawFallback(t *testing.T) {
	out := RenderBlock("calculator", map[string]any{"ok": true, "result": "8"})
	assert.True(t, strings.HasPrefix(out, "EVIDENCE (raw, from calculator):"))
	assert.Contains(t, out, `"result": "8"`)
	assert.Contains(t, out, "Use ONLY the above evidence")
}
