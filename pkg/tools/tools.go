package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Payload is the structured result of a tool run. Every payload carries an
// "ok" flag; failed runs carry "error" instead of result fields. Failures
// are data handed back to the model, not Go errors.
type Payload map[string]any

// OK builds a successful payload from result fields.
func OK(fields map[string]any) Payload {
	p := Payload{"ok": true}
	for k, v := range fields {
		p[k] = v
	}
	return p
}

// Errf builds a failed payload with a formatted error message.
func Errf(format string, args ...any) Payload {
	return Payload{"ok": false, "error": fmt.Sprintf(format, args...)}
}

// IsOK reports whether the payload represents a successful run.
func (p Payload) IsOK() bool {
	ok, _ := p["ok"].(bool)
	return ok
}

// ErrorMessage returns the error text of a failed payload, or "".
func (p Payload) ErrorMessage() string {
	s, _ := p["error"].(string)
	return s
}

// Definition describes one callable tool: its advertised schema and the
// function that runs it. Run never returns a Go error; every failure mode
// becomes a payload the model can read and recover from.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Run         func(ctx context.Context, args json.RawMessage) Payload `json:"-"`
}

// schemaFor reflects a JSON schema from an arguments struct, inlined for
// OpenAI compatibility.
func schemaFor(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	schema.Version = ""
	return schema
}
