package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesProvider(t *testing.T) {
	c, err := NewClient("serper")
	require.NoError(t, err)
	assert.IsType(t, &SerperClient{}, c)

	c, err = NewClient("")
	require.NoError(t, err)
	assert.IsType(t, &SerperClient{}, c)

	c, err = NewClient("serpapi")
	require.NoError(t, err)
	assert.IsType(t, &SerpAPIClient{}, c)

	_, err = NewClient("bing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported search provider")
}

func TestSerperMissingAPIKey(t *testing.T) {
	t.Setenv("SERPER_API_KEY", "")
	c := NewSerperClient(http.DefaultClient)
	resp := c.Search(context.Background(), "query", DefaultLocale)
	require.False(t, resp.OK)
	assert.Contains(t, resp.Error, "SERPER_API_KEY")
}

func TestSerperNormalizesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "who is the president", body["q"])
		assert.Equal(t, "us", body["gl"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"title": "Result", "link": "https://www.example.com/page", "snippet": "text"},
			},
			"answerBox":      map[string]any{"answer": "42"},
			"knowledgeGraph": map[string]any{"title": "Entity"},
			"peopleAlsoAsk": []map[string]any{
				{"question": "Q1", "snippet": "S1", "link": "https://a.com/x"},
			},
		})
	}))
	defer srv.Close()

	c := NewSerperClient(srv.Client(),
		WithSerperEndpoint(srv.URL),
		WithSerperAPIKey("test-key"))
	resp := c.Search(context.Background(), "who is the president", DefaultLocale)

	require.True(t, resp.OK)
	require.Len(t, resp.Organic, 1)
	assert.Equal(t, "www.example.com", resp.Organic[0]["displayed_link"])
	assert.Equal(t, "42", resp.AnswerBox["answer"])
	require.Len(t, resp.RelatedQuestions, 1)
	assert.Equal(t, "S1", resp.RelatedQuestions[0]["snippet"])
	require.Len(t, resp.QnA, 1)
	assert.Equal(t, "S1", resp.QnA[0]["answer"])
}

func TestSerperHTTPErrorIsNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewSerperClient(srv.Client(),
		WithSerperEndpoint(srv.URL),
		WithSerperAPIKey("test-key"))
	resp := c.Search(context.Background(), "query", DefaultLocale)

	require.False(t, resp.OK)
	assert.Contains(t, resp.Error, "HTTP 403")
}

func TestSerpAPIPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]any{{"title": "R"}},
			"news_results":    []map[string]any{{"title": "N"}},
		})
	}))
	defer srv.Close()

	c := NewSerpAPIClient(srv.Client(),
		WithSerpAPIEndpoint(srv.URL),
		WithSerpAPIKey("test-key"))
	resp := c.Search(context.Background(), "query", DefaultLocale)

	require.True(t, resp.OK)
	require.Len(t, resp.Organic, 1)
	require.Len(t, resp.News, 1)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("https://example.com/a/b"))
	assert.Equal(t, "www.example.com", domainOf("http://www.example.com"))
	assert.Equal(t, "example.com", domainOf("example.com/x"))
}
