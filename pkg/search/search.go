package search

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Response is the provider-independent search result schema. Category
// contents stay loosely typed because providers disagree on the exact
// fields; the evidence normalizer works field-wise over them.
type Response struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	Organic          []map[string]any `json:"organic_results"`
	AnswerBox        map[string]any   `json:"answer_box"`
	KnowledgeGraph   map[string]any   `json:"knowledge_graph"`
	RelatedQuestions []map[string]any `json:"related_questions"`
	QnA              []map[string]any `json:"questions_and_answers"`
	News             []map[string]any `json:"news"`
	Images           []map[string]any `json:"images"`
}

// Locale selects the result market.
type Locale struct {
	Country  string // gl, e.g. "us"
	Language string // hl, e.g. "en"
}

// DefaultLocale matches the provider defaults.
var DefaultLocale = Locale{Country: "us", Language: "en"}

// Client is a web search provider. Search never panics; provider and
// transport failures are reported through Response.OK / Response.Error.
type Client interface {
	Search(ctx context.Context, query string, loc Locale) *Response
}

// Supported provider names.
const (
	ProviderSerper  = "serper"
	ProviderSerpAPI = "serpapi"
)

// NewClient builds a client for the named provider. Unsupported provider
// values are an explicit error rather than a silent fallback.
func NewClient(provider string) (Client, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	switch provider {
	case "", ProviderSerper:
		return NewSerperClient(httpClient), nil
	case ProviderSerpAPI:
		return NewSerpAPIClient(httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported search provider %q (supported: %s, %s)",
			provider, ProviderSerper, ProviderSerpAPI)
	}
}

func errResponse(format string, args ...any) *Response {
	return &Response{OK: false, Error: fmt.Sprintf(format, args...)}
}
