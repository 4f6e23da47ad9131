package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/freshloop/pkg/evidence"
	"github.com/go-go-golems/freshloop/pkg/search"
)

type stubSearchClient struct {
	resp *search.Response
}

func (s *stubSearchClient) Search(_ context.Context, _ string, _ search.Locale) *search.Response {
	return s.resp
}

func testGoogleTool(resp *search.Response) Definition {
	return NewGoogleTool(GoogleConfig{
		Budget: evidence.DefaultBudget,
		Now:    func() time.Time { return time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC) },
		NewClient: func(provider string) (search.Client, error) {
			if provider != search.ProviderSerper && provider != search.ProviderSerpAPI {
				return nil, errors.Errorf("unsupported search provider: %s", provider)
			}
			return &stubSearchClient{resp: resp}, nil
		},
	})
}

func testRegistry(t *testing.T, resp *search.Response) *Registry {
	t.Helper()
	r, err := NewRegistry(testGoogleTool(resp), NewCalculatorTool())
	require.NoError(t, err)
	return r
}

func okResponse() *search.Response {
	return &search.Response{
		OK: true,
		Organic: []map[string]any{
			{"title": "result", "snippet": "snippet text", "displayed_link": "example.com", "date": "Jan 1, 2023"},
		},
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := testRegistry(t, okResponse())
	assert.Equal(t, []string{"calculator", "google"}, r.Names())
	assert.Equal(t, "calculator, google", r.NamesList())
	assert.True(t, r.Has("google"))
	assert.False(t, r.Has("wikipedia"))
}

func TestRegistrySpecs(t *testing.T) {
	r := testRegistry(t, okResponse())
	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "calculator", specs[0].Name)
	assert.Equal(t, "google", specs[1].Name)
	assert.NotNil(t, specs[1].Parameters)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(NewCalculatorTool(), NewCalculatorTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool")
}

func TestDispatchUnknownTool(t *testing.T) {
	r := testRegistry(t, okResponse())
	_, err := r.Dispatch(context.Background(), "wikipedia", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTool))
}

func TestDispatchValidatesArguments(t *testing.T) {
	r := testRegistry(t, okResponse())

	p, err := r.Dispatch(context.Background(), "google", json.RawMessage(`{"provider": "serper"}`))
	require.NoError(t, err)
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "invalid arguments for google")

	p, err = r.Dispatch(context.Background(), "google", json.RawMessage(`{"question": "q", "provider": "bing"}`))
	require.NoError(t, err)
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "invalid arguments for google")
}

func TestDispatchGoogleBuildsPrompt(t *testing.T) {
	r := testRegistry(t, okResponse())
	p, err := r.Dispatch(context.Background(), "google", json.RawMessage(`{"question": "what happened?"}`))
	require.NoError(t, err)
	require.True(t, p.IsOK())
	assert.Equal(t, "what happened?", p["question"])

	prompt, ok := p["prompt"].(string)
	require.True(t, ok)
	assert.Contains(t, prompt, "query: what happened?")
	assert.Contains(t, prompt, "source: example.com")
	assert.Contains(t, prompt, "date: Jan 01, 2023")
}

func TestDispatchGoogleSearchFailure(t *testing.T) {
	r := testRegistry(t, &search.Response{OK: false, Error: "HTTP 403"})
	p, err := r.Dispatch(context.Background(), "google", json.RawMessage(`{"question": "q"}`))
	require.NoError(t, err)
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "HTTP 403")
}

func TestDispatchEmptyArgsDefaultToObject(t *testing.T) {
	r := testRegistry(t, okResponse())
	p, err := r.Dispatch(context.Background(), "calculator", nil)
	require.NoError(t, err)
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "invalid arguments for calculator")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	panicky := Definition{
		Name:        "boom",
		Description: "always panics",
		Run: func(context.Context, json.RawMessage) Payload {
			panic("kaboom")
		},
	}
	r, err := NewRegistry(panicky)
	require.NoError(t, err)

	p, err := r.Dispatch(context.Background(), "boom", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, p.IsOK())
	assert.Contains(t, p.ErrorMessage(), "kaboom")
}
