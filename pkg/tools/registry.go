package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/go-go-golems/freshloop/pkg/inference/engine"
)

// Registry is an immutable set of tool definitions. Build it once at
// startup; lookups and dispatch are safe for concurrent use.
type Registry struct {
	tools   map[string]Definition
	schemas map[string]*gojsonschema.Schema
	names   []string
}

// NewRegistry builds a registry from definitions. Parameter schemas are
// compiled up front so dispatch-time validation is cheap.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]Definition, len(defs)),
		schemas: make(map[string]*gojsonschema.Schema, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if def.Run == nil {
			return nil, errors.Errorf("tool %s has no run function", def.Name)
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, errors.Errorf("duplicate tool: %s", def.Name)
		}
		if def.Parameters != nil {
			raw, err := json.Marshal(def.Parameters)
			if err != nil {
				return nil, errors.Wrapf(err, "marshaling schema for tool %s", def.Name)
			}
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				return nil, errors.Wrapf(err, "compiling schema for tool %s", def.Name)
			}
			r.schemas[def.Name] = compiled
		}
		r.tools[def.Name] = def
		r.names = append(r.names, def.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// NamesList renders the sorted tool names as "a, b, c" for use in
// messages to the model.
func (r *Registry) NamesList() string {
	return strings.Join(r.names, ", ")
}

// Specs returns the advertisable tool specs in sorted name order.
func (r *Registry) Specs() []engine.ToolSpec {
	specs := make([]engine.ToolSpec, 0, len(r.names))
	for _, name := range r.names {
		def := r.tools[name]
		specs = append(specs, engine.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return specs
}

// ErrUnknownTool is returned by Dispatch when the requested tool is not
// registered. Callers decide how to surface it to the model.
var ErrUnknownTool = errors.New("unknown tool")

// Dispatch validates the raw arguments against the tool's schema and runs
// it. Validation failures and panics inside the tool become failed
// payloads; only an unregistered name is a Go error.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (Payload, error) {
	def, ok := r.tools[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTool, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if schema, ok := r.schemas[name]; ok {
		result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
		if err != nil {
			return Errf("invalid arguments for %s: %s", name, err.Error()), nil
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return Errf("invalid arguments for %s: %s", name, strings.Join(msgs, "; ")), nil
		}
	}

	payload := r.run(ctx, def, args)
	if !payload.IsOK() {
		log.Debug().Str("tool", name).Str("error", payload.ErrorMessage()).Msg("tool run failed")
	}
	return payload, nil
}

func (r *Registry) run(ctx context.Context, def Definition, args json.RawMessage) (payload Payload) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("tool", def.Name).Interface("panic", rec).Msg("tool panicked")
			payload = Errf("tool %s panicked: %v", def.Name, rec)
		}
	}()
	return def.Run(ctx, args)
}
