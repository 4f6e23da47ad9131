package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

const serperEndpoint = "https://google.serper.dev/search"

// SerperClient queries the Serper.dev API and maps its payload onto the
// SerpAPI-style schema the evidence formatters expect.
type SerperClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

type SerperOption func(*SerperClient)

// WithSerperEndpoint overrides the API endpoint (used by tests).
func WithSerperEndpoint(endpoint string) SerperOption {
	return func(c *SerperClient) { c.endpoint = endpoint }
}

// WithSerperAPIKey overrides the SERPER_API_KEY environment lookup.
func WithSerperAPIKey(key string) SerperOption {
	return func(c *SerperClient) { c.apiKey = key }
}

func NewSerperClient(httpClient *http.Client, opts ...SerperOption) *SerperClient {
	c := &SerperClient{httpClient: httpClient, endpoint: serperEndpoint}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SerperClient) Search(ctx context.Context, query string, loc Locale) *Response {
	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("SERPER_API_KEY")
	}
	if apiKey == "" {
		return errResponse("SERPER_API_KEY not found in environment")
	}
	if loc.Country == "" {
		loc = DefaultLocale
	}

	payload, err := json.Marshal(map[string]string{
		"q":  query,
		"gl": loc.Country,
		"hl": loc.Language,
	})
	if err != nil {
		return errResponse("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return errResponse("build request: %v", err)
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errResponse("serper request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResponse("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("serper: non-200 response")
		return errResponse("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return errResponse("decode response: %v", err)
		}
	}
	return normalizeSerper(raw)
}

// normalizeSerper maps Serper field names onto the SerpAPI-style schema:
// organic -> organic_results (with a displayed_link), answerBox ->
// answer_box, knowledgeGraph -> knowledge_graph, peopleAlsoAsk -> both
// related_questions and questions_and_answers.
func normalizeSerper(raw map[string]any) *Response {
	out := &Response{OK: true}

	for _, item := range listOfMaps(raw["organic"]) {
		displayed, _ := item["source"].(string)
		if displayed == "" {
			displayed, _ = item["displayed_link"].(string)
		}
		if displayed == "" {
			if link, ok := item["link"].(string); ok && link != "" {
				displayed = domainOf(link)
			}
		}
		cp := make(map[string]any, len(item)+1)
		for k, v := range item {
			cp[k] = v
		}
		cp["displayed_link"] = displayed
		out.Organic = append(out.Organic, cp)
	}

	out.AnswerBox = asMap(raw["answerBox"])
	out.KnowledgeGraph = asMap(raw["knowledgeGraph"])

	for _, x := range listOfMaps(raw["peopleAlsoAsk"]) {
		snippet := firstString(x, "snippet", "answer")
		out.RelatedQuestions = append(out.RelatedQuestions, map[string]any{
			"question":       x["question"],
			"snippet":        snippet,
			"displayed_link": firstString(x, "source", "link"),
		})
		out.QnA = append(out.QnA, map[string]any{
			"question": x["question"],
			"answer":   firstString(x, "answer", "snippet"),
			"link":     firstString(x, "link", "source"),
		})
	}

	out.News = listOfMaps(raw["news"])
	out.Images = listOfMaps(raw["images"])
	return out
}

func listOfMaps(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func domainOf(link string) string {
	rest := link
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
