package evidence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the normalized date form used in evidence entries.
const DateLayout = "Jan 02, 2006"

// Entry is one normalized evidence item, independent of which result
// category it came from.
type Entry struct {
	Source    string
	Date      string // DateLayout or "" when undated
	Title     string
	Snippet   string
	Highlight string
}

// IsEmpty reports whether the entry carries no information at all.
func (e Entry) IsEmpty() bool {
	return e.Source == "" && e.Date == "" && e.Title == "" && e.Snippet == "" && e.Highlight == ""
}

var daysAgoRe = regexp.MustCompile(`(\d+)\s+days?\s+ago`)

// FormatDate normalizes free-form date strings to DateLayout. Relative
// phrasings ("3 hours ago", "2 days ago") resolve against now. Returns ""
// when nothing parseable is found.
func FormatDate(d string, now time.Time) string {
	d = strings.TrimSpace(d)
	if d == "" {
		return ""
	}
	lc := strings.ToLower(d)

	for _, unit := range []string{"second", "minute", "hour"} {
		if strings.Contains(lc, unit+" ago") || strings.Contains(lc, unit+"s ago") {
			return now.Format(DateLayout)
		}
	}
	if strings.Contains(lc, "day ago") || strings.Contains(lc, "days ago") {
		if m := daysAgoRe.FindStringSubmatch(lc); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return now.AddDate(0, 0, -n).Format(DateLayout)
			}
		}
		return now.Format(DateLayout)
	}

	if t, err := dateparse.ParseAny(d); err == nil {
		return t.Format(DateLayout)
	}
	// Fuzzy fallback: try individual tokens ("Published Mar 5, 2021" etc.).
	for _, tok := range strings.Fields(d) {
		tok = strings.Trim(tok, ",.;()")
		if tok == "" {
			continue
		}
		if t, err := dateparse.ParseAny(tok); err == nil {
			return t.Format(DateLayout)
		}
	}
	return ""
}

// ExtractSourceWebpage returns the bare domain of a URL-like string.
func ExtractSourceWebpage(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	for _, prefix := range []string{"https://www.", "http://www.", "https://", "http://"} {
		link = strings.Replace(link, prefix, "", 1)
	}
	if i := strings.Index(link, "/"); i >= 0 {
		link = link[:i]
	}
	return link
}

// SimplifyDisplayedLink reduces a breadcrumb-style displayed link
// ("example.com › section › page") to its main domain.
func SimplifyDisplayedLink(displayed string) string {
	if displayed == "" {
		return ""
	}
	left := strings.SplitN(displayed, " › ", 2)[0]
	return ExtractSourceWebpage(left)
}

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func strList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, str(it))
	}
	return out
}

type formatOptions struct {
	titleField     string
	highlightField string
}

// FormatOption tweaks which raw fields feed an entry.
type FormatOption func(*formatOptions)

// WithTitleField reads the title from a different raw field (related
// questions store it under "question").
func WithTitleField(field string) FormatOption {
	return func(o *formatOptions) { o.titleField = field }
}

// WithHighlightField reads the highlight from a different raw field (answer
// boxes store it under "answer").
func WithHighlightField(field string) FormatOption {
	return func(o *formatOptions) { o.highlightField = field }
}

// FormatSearchResult normalizes one heterogeneous search result into an
// Entry. It understands the generic organic shape plus the local_time and
// population_result special cases.
func FormatSearchResult(sd map[string]any, now time.Time, opts ...FormatOption) Entry {
	o := formatOptions{titleField: "title", highlightField: "snippet_highlighted_words"}
	for _, opt := range opts {
		opt(&o)
	}
	if sd == nil {
		sd = map[string]any{}
	}

	highlighted := ""
	if words := strList(sd["snippet_highlighted_words"]); len(words) > 0 {
		highlighted = strings.Join(words, " | ")
	} else {
		highlighted = str(sd["snippet_highlighted_words"])
	}

	displayed := str(sd["displayed_link"])
	if displayed == "" {
		displayed = str(sd["source"])
	}
	if displayed == "" {
		displayed = ExtractSourceWebpage(str(sd["link"]))
	}
	displayed = SimplifyDisplayedLink(displayed)

	var e Entry
	switch str(sd["type"]) {
	case "local_time":
		e.Source = displayed
		e.Date = FormatDate(str(sd["date"]), now)
		e.Title = str(sd["title"])
		e.Snippet = str(sd["snippet"])
		if e.Snippet == "" && sd["result"] != nil {
			if exts := strList(sd["extensions"]); len(exts) > 0 {
				e.Snippet = strings.Join(append([]string{str(sd["result"])}, exts...), "\n\t")
			} else {
				e.Snippet = str(sd["result"])
			}
		}
		e.Highlight = highlighted
		if e.Highlight == "" {
			e.Highlight = str(sd["result"])
		}

	case "population_result":
		e.Source = displayed
		if e.Source == "" {
			if srcs, ok := sd["sources"].([]any); ok && len(srcs) > 0 {
				if first, ok := srcs[0].(map[string]any); ok {
					e.Source = ExtractSourceWebpage(str(first["link"]))
				}
			}
		}
		e.Date = FormatDate(str(sd["date"]), now)
		if e.Date == "" {
			e.Date = FormatDate(str(sd["year"]), now)
		}
		e.Title = str(sd["title"])
		e.Snippet = str(sd["snippet"])
		if e.Snippet == "" && sd["population"] != nil {
			if place := str(sd["place"]); place != "" {
				e.Snippet = place + " / Population\n\t" + str(sd["population"])
			} else {
				e.Snippet = str(sd["population"])
			}
		}
		e.Highlight = highlighted
		if e.Highlight == "" {
			e.Highlight = str(sd["population"])
		}

	default:
		e.Source = displayed
		e.Date = FormatDate(str(sd["date"]), now)
		e.Title = str(sd[o.titleField])
		if o.highlightField == "snippet_highlighted_words" {
			e.Highlight = highlighted
		} else {
			e.Highlight = str(sd[o.highlightField])
		}
		e.Snippet = str(sd["snippet"])

		if rich, ok := sd["rich_snippet"].(map[string]any); ok {
			for _, key := range []string{"top", "bottom"} {
				section, ok := rich[key].(map[string]any)
				if !ok {
					continue
				}
				if exts := strList(section["extensions"]); len(exts) > 0 {
					e.Snippet = strings.Join(append([]string{e.Snippet}, exts...), "\n\t")
				}
			}
		}
		if items := strList(sd["list"]); len(items) > 0 {
			e.Snippet = strings.Join(append([]string{e.Snippet}, items...), "\n\t")
		}
		if contents, ok := sd["contents"].(map[string]any); ok {
			if table, ok := contents["table"].([]any); ok {
				var sb strings.Builder
				sb.WriteString(e.Snippet)
				sb.WriteString("\n")
				for _, row := range table {
					sb.WriteString("\n")
					if cells, ok := row.([]any); ok {
						parts := make([]string, 0, len(cells))
						for _, c := range cells {
							parts = append(parts, str(c))
						}
						sb.WriteString(strings.Join(parts, ","))
					} else {
						sb.WriteString(str(row))
					}
				}
				e.Snippet = sb.String()
			}
		}
		e.Snippet = strings.TrimRight(e.Snippet, " ")
		if strings.TrimSpace(e.Snippet) == "" {
			e.Snippet = ""
		}
	}
	return e
}

// FormatKnowledgeGraph normalizes a knowledge panel into an Entry: the
// title line carries the entity type, and scalar string fields become
// indented snippet lines.
func FormatKnowledgeGraph(sd map[string]any) Entry {
	if sd == nil {
		return Entry{}
	}
	var e Entry
	if src, ok := sd["source"].(map[string]any); ok {
		e.Source = ExtractSourceWebpage(str(src["link"]))
	}
	if title := str(sd["title"]); title != "" {
		e.Title = title
		if typ := str(sd["type"]); typ != "" {
			e.Title += "\n\t" + typ
		}
	}
	var lines []string
	for field, val := range sd {
		if field == "title" || field == "type" || field == "kgmid" {
			continue
		}
		if strings.Contains(field, "_link") || strings.Contains(field, "_stick") {
			continue
		}
		s, ok := val.(string)
		if !ok || strings.HasPrefix(s, "http") {
			continue
		}
		lines = append(lines, "\t"+field+": "+s)
	}
	// Map iteration order would shuffle snippet lines between runs.
	sort.Strings(lines)
	e.Snippet = strings.TrimSpace(strings.Join(lines, "\n"))
	return e
}

// FormatQnA normalizes a question-and-answer result into an Entry.
func FormatQnA(sd map[string]any) Entry {
	if sd == nil {
		return Entry{}
	}
	return Entry{
		Source:  ExtractSourceWebpage(str(sd["link"])),
		Title:   str(sd["question"]),
		Snippet: str(sd["answer"]),
	}
}
