package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/freshloop/pkg/evidence"
	"github.com/go-go-golems/freshloop/pkg/search"
)

// GoogleArgs are the arguments the model supplies for a web search.
type GoogleArgs struct {
	Question string `json:"question" jsonschema:"required,description=The search query to run"`
	Provider string `json:"provider,omitempty" jsonschema:"enum=serper,enum=serpapi,description=Search backend to use"`
}

// GoogleConfig configures the google tool.
type GoogleConfig struct {
	// DefaultProvider is used when the model omits the provider argument.
	DefaultProvider string
	Locale          search.Locale
	Budget          evidence.Budget
	// Now supplies the reference time for date normalization. Defaults to
	// time.Now.
	Now func() time.Time
	// NewClient builds a search client for a provider. Defaults to
	// search.NewClient; tests swap it for a stub.
	NewClient func(provider string) (search.Client, error)
}

// NewGoogleTool builds the web search tool: it runs the query against the
// configured provider and renders the response into a prompt-ready
// evidence payload.
func NewGoogleTool(cfg GoogleConfig) Definition {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = search.ProviderSerper
	}
	if cfg.Locale == (search.Locale{}) {
		cfg.Locale = search.DefaultLocale
	}
	if cfg.Budget == (evidence.Budget{}) {
		cfg.Budget = evidence.DefaultBudget
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewClient == nil {
		cfg.NewClient = search.NewClient
	}

	return Definition{
		Name: "google",
		Description: "Search the web for current information. " +
			"Returns dated evidence snippets for the given question.",
		Parameters: schemaFor(&GoogleArgs{}),
		Run: func(ctx context.Context, raw json.RawMessage) Payload {
			var args GoogleArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return Errf("invalid arguments for google: %s", err.Error())
			}
			provider := args.Provider
			if provider == "" {
				provider = cfg.DefaultProvider
			}
			client, err := cfg.NewClient(provider)
			if err != nil {
				return Errf("%s", err.Error())
			}

			log.Debug().Str("provider", provider).Str("question", args.Question).Msg("running web search")
			resp := client.Search(ctx, args.Question, cfg.Locale)
			if !resp.OK {
				return Errf("search failed: %s", resp.Error)
			}

			prompt := evidence.BuildPrompt(args.Question, resp, cfg.Budget, cfg.Now())
			return OK(map[string]any{
				"question": args.Question,
				"prompt":   prompt,
			})
		},
	}
}
