package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// SerpAPIClient queries SerpAPI's Google engine. SerpAPI already speaks the
// schema the evidence formatters expect, so mapping is mostly passthrough.
type SerpAPIClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

type SerpAPIOption func(*SerpAPIClient)

// WithSerpAPIEndpoint overrides the API endpoint (used by tests).
func WithSerpAPIEndpoint(endpoint string) SerpAPIOption {
	return func(c *SerpAPIClient) { c.endpoint = endpoint }
}

// WithSerpAPIKey overrides the SERPAPI_API_KEY environment lookup.
func WithSerpAPIKey(key string) SerpAPIOption {
	return func(c *SerpAPIClient) { c.apiKey = key }
}

func NewSerpAPIClient(httpClient *http.Client, opts ...SerpAPIOption) *SerpAPIClient {
	c := &SerpAPIClient{httpClient: httpClient, endpoint: serpAPIEndpoint}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SerpAPIClient) Search(ctx context.Context, query string, loc Locale) *Response {
	apiKey := c.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("SERPAPI_API_KEY")
	}
	if apiKey == "" {
		return errResponse("SERPAPI_API_KEY not set in environment")
	}
	if loc.Country == "" {
		loc = DefaultLocale
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", loc.Language)
	params.Set("gl", loc.Country)
	params.Set("google_domain", "google.com")
	params.Set("api_key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errResponse("build request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errResponse("serpapi request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResponse("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errResponse("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return errResponse("decode response: %v", err)
		}
	}

	news := listOfMaps(raw["news_results"])
	if news == nil {
		news = listOfMaps(raw["news"])
	}
	images := listOfMaps(raw["images_results"])
	if images == nil {
		images = listOfMaps(raw["images"])
	}

	return &Response{
		OK:               true,
		Organic:          listOfMaps(raw["organic_results"]),
		AnswerBox:        asMap(raw["answer_box"]),
		KnowledgeGraph:   asMap(raw["knowledge_graph"]),
		RelatedQuestions: listOfMaps(raw["related_questions"]),
		QnA:              listOfMaps(raw["questions_and_answers"]),
		News:             news,
		Images:           images,
	}
}
